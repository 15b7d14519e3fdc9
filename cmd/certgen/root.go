package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MNasiifu/automobile-association-sub000/config"
	"github.com/MNasiifu/automobile-association-sub000/observability"
)

// cli carries state shared by the subcommands once the root command has
// loaded configuration.
type cli struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	zl     *zap.Logger
	logger observability.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "certgen",
		Short: "Render IDP verification certificates",
		Long: `certgen renders International Driving Permit verification certificates.

It composes the certificate page for a verification record, rasterizes it
and exports it as a PDF, or opens the composed page as an HTML preview.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(*cobra.Command, []string) { c.teardown() },
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default ./certgen.yaml or ./configs/certgen.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override log.level")

	root.AddCommand(
		newSaveCmd(c),
		newPreviewCmd(c),
		newServeCmd(c),
		newConfigCmd(c),
		newSchemaCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		printError(cmd.ErrOrStderr(), err.Error())
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	zl, err := observability.NewZap(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	c.cfg = cfg
	c.zl = zl
	c.logger = observability.NewZapAdapter(zl).With(observability.String("environment", cfg.Environment))
	return nil
}

func (c *cli) teardown() {
	if c.zl != nil {
		_ = c.zl.Sync()
	}
}

// skipSetup replaces the root pre-run for commands that must work without
// a valid configuration.
func skipSetup(*cobra.Command, []string) error { return nil }
