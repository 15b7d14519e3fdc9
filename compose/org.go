package compose

// Organization is the issuing body shown in the header and footer.
type Organization struct {
	Name      string `mapstructure:"name" yaml:"name"`
	ShortName string `mapstructure:"short_name" yaml:"short_name"`
	Tagline   string `mapstructure:"tagline" yaml:"tagline"`
	Address   string `mapstructure:"address" yaml:"address"`
	Phone     string `mapstructure:"phone" yaml:"phone"`
	Email     string `mapstructure:"email" yaml:"email"`
	Website   string `mapstructure:"website" yaml:"website"`
}

// DefaultOrganization returns the identity printed when none is configured.
func DefaultOrganization() Organization {
	return Organization{
		Name:      "Automobile Association of Uganda",
		ShortName: "AA Uganda",
		Tagline:   "International Driving Permits and Motoring Services",
		Address:   "AA House, Kampala, Uganda",
		Phone:     "+256 414 000 000",
		Email:     "info@aauganda.co.ug",
		Website:   "https://www.aauganda.co.ug",
	}
}

// withDefaults fills empty fields from DefaultOrganization.
func (o Organization) withDefaults() Organization {
	d := DefaultOrganization()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&o.Name, d.Name)
	fill(&o.ShortName, d.ShortName)
	fill(&o.Tagline, d.Tagline)
	fill(&o.Address, d.Address)
	fill(&o.Phone, d.Phone)
	fill(&o.Email, d.Email)
	fill(&o.Website, d.Website)
	return o
}
