// Package config loads certgen settings from YAML, a .env file and
// CERTGEN_ environment variables, in that order of precedence (lowest
// first).
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/MNasiifu/automobile-association-sub000/compose"
	"github.com/MNasiifu/automobile-association-sub000/layout"
	"github.com/MNasiifu/automobile-association-sub000/writer"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// EnvPrefix namespaces environment overrides, e.g. CERTGEN_RENDER_SCALE.
	EnvPrefix = "CERTGEN"
)

type Config struct {
	Environment  string               `mapstructure:"environment" yaml:"environment"`
	Log          LogConfig            `mapstructure:"log" yaml:"log"`
	Logo         LogoConfig           `mapstructure:"logo" yaml:"logo"`
	Render       RenderConfig         `mapstructure:"render" yaml:"render"`
	Export       ExportConfig         `mapstructure:"export" yaml:"export"`
	Validation   ValidateConfig       `mapstructure:"validate" yaml:"validate"`
	Output       OutputConfig         `mapstructure:"output" yaml:"output"`
	Server       ServerConfig         `mapstructure:"server" yaml:"server"`
	Organization compose.Organization `mapstructure:"organization" yaml:"organization"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type LogoConfig struct {
	Ref          string        `mapstructure:"ref" yaml:"ref"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
	MaxBytes     int64         `mapstructure:"max_bytes" yaml:"max_bytes"`
}

type RenderConfig struct {
	ImageTimeout time.Duration `mapstructure:"image_timeout" yaml:"image_timeout"`
	SettleDelay  time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	Scale        float64       `mapstructure:"scale" yaml:"scale"`
	Width        float64       `mapstructure:"width" yaml:"width"`
	Background   string        `mapstructure:"background" yaml:"background"`
}

type ExportConfig struct {
	JPEGQuality int     `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`
	Margin      float64 `mapstructure:"margin" yaml:"margin"`
	PageBreak   string  `mapstructure:"page_break" yaml:"page_break"`
	// Compress defaults to true in production and false otherwise.
	Compress      *bool `mapstructure:"compress" yaml:"compress,omitempty"`
	Deterministic bool  `mapstructure:"deterministic" yaml:"deterministic"`
}

type ValidateConfig struct {
	MinBytes int `mapstructure:"min_bytes" yaml:"min_bytes"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// Load reads path (or certgen.yaml from the working directory or ./configs
// when path is empty), overlays .env and environment variables, applies
// defaults and validates the result.
func Load(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("certgen")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// keys are bound explicitly so environment overrides apply even when the
// file omits them.
var keys = []string{
	"environment",
	"log.level", "log.format",
	"logo.ref", "logo.fetch_timeout", "logo.max_bytes",
	"render.image_timeout", "render.settle_delay", "render.scale", "render.width", "render.background",
	"export.jpeg_quality", "export.margin", "export.page_break", "export.compress", "export.deterministic",
	"validate.min_bytes",
	"output.dir",
	"server.addr", "server.read_timeout", "server.shutdown_timeout",
	"organization.name", "organization.short_name", "organization.tagline", "organization.address",
	"organization.phone", "organization.email", "organization.website",
}

func loadEnvFile() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

func applyDefaults(cfg *Config) {
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.Environment == "" {
		cfg.Environment = EnvDevelopment
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		if cfg.Environment == EnvProduction {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "console"
		}
	}

	if cfg.Logo.FetchTimeout == 0 {
		cfg.Logo.FetchTimeout = 10 * time.Second
	}
	if cfg.Logo.MaxBytes == 0 {
		cfg.Logo.MaxBytes = 8 << 20
	}

	if cfg.Render.ImageTimeout == 0 {
		cfg.Render.ImageTimeout = 5 * time.Second
	}
	if cfg.Render.SettleDelay == 0 {
		cfg.Render.SettleDelay = 100 * time.Millisecond
	}
	if cfg.Render.Scale == 0 {
		cfg.Render.Scale = 2
	}
	if cfg.Render.Width == 0 {
		cfg.Render.Width = 800
	}
	if cfg.Render.Background == "" {
		cfg.Render.Background = "#ffffff"
	}

	if cfg.Export.JPEGQuality == 0 {
		cfg.Export.JPEGQuality = writer.DefaultJPEGQuality
	}
	if cfg.Export.Margin == 0 {
		cfg.Export.Margin = writer.DefaultMargin
	}
	if cfg.Export.PageBreak == "" {
		cfg.Export.PageBreak = writer.PageBreakAvoid.String()
	}
	if cfg.Export.Compress == nil {
		compress := cfg.Environment == EnvProduction
		cfg.Export.Compress = &compress
	}

	if cfg.Validation.MinBytes == 0 {
		cfg.Validation.MinBytes = 1024
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "."
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	def := compose.DefaultOrganization()
	fill := func(v *string, d string) {
		if strings.TrimSpace(*v) == "" {
			*v = d
		}
	}
	fill(&cfg.Organization.Name, def.Name)
	fill(&cfg.Organization.ShortName, def.ShortName)
	fill(&cfg.Organization.Tagline, def.Tagline)
	fill(&cfg.Organization.Address, def.Address)
	fill(&cfg.Organization.Phone, def.Phone)
	fill(&cfg.Organization.Email, def.Email)
	fill(&cfg.Organization.Website, def.Website)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("environment must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Environment)
	}
	if c.Render.ImageTimeout < 0 || c.Render.SettleDelay < 0 {
		return errors.New("render timeouts must not be negative")
	}
	if c.Render.Scale <= 0 || c.Render.Scale > 8 {
		return fmt.Errorf("render.scale must be in (0, 8], got %v", c.Render.Scale)
	}
	if c.Render.Width <= 0 {
		return fmt.Errorf("render.width must be positive, got %v", c.Render.Width)
	}
	if _, err := layout.ParseColor(c.Render.Background); err != nil {
		return fmt.Errorf("render.background: %w", err)
	}
	if c.Export.JPEGQuality < 1 || c.Export.JPEGQuality > 100 {
		return fmt.Errorf("export.jpeg_quality must be in [1, 100], got %d", c.Export.JPEGQuality)
	}
	if _, err := writer.ParsePageBreak(c.Export.PageBreak); err != nil {
		return fmt.Errorf("export.page_break: %w", err)
	}
	if c.Validation.MinBytes < 0 {
		return fmt.Errorf("validate.min_bytes must not be negative, got %d", c.Validation.MinBytes)
	}
	return nil
}

// Compress reports whether content streams are compressed.
func (c Config) Compress() bool {
	return c.Export.Compress != nil && *c.Export.Compress
}

// WriterConfig maps the export section onto the encoder configuration.
func (c Config) WriterConfig() writer.Config {
	pageBreak, _ := writer.ParsePageBreak(c.Export.PageBreak)
	return writer.Config{
		Version:       writer.PDF17,
		PageSize:      writer.A4,
		Margin:        c.Export.Margin,
		JPEGQuality:   c.Export.JPEGQuality,
		Compress:      c.Compress(),
		PageBreak:     pageBreak,
		Deterministic: c.Export.Deterministic,
		Info: writer.Info{
			Title:    "International Driving Permit Verification",
			Author:   c.Organization.Name,
			Subject:  "IDP verification certificate",
			Creator:  c.Organization.ShortName,
			Producer: "certgen",
		},
	}
}

// WriteYAML writes c as YAML.
func (c Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
