package main

import (
	"fmt"

	"github.com/jun787/CVA-cupping-forms/internal/config"
	"github.com/jun787/CVA-cupping-forms/internal/logger"
	"github.com/spf13/cobra"
	"github.com/unidoc/unipdf/v3/common/license"
)

var (
	cfgFile string

	// appConfig and log are set before any subcommand runs
	appConfig *config.Config
	log       *logger.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cvaforms",
	Short: "Fill and export CVA cupping forms",
	Long: `cvaforms keeps cupping sessions for the CVA questionnaire and exports
them as flattened PDFs.

Features:
  - Sessions stored in a single JSON file with atomic saves
  - Field layouts in JSON or YAML, with ID and checkbox grid helpers
  - Export only the pages that carry at least one filled field
  - Each exported page is the source page rendered to an image with the
    values drawn on top, so the result looks the same in every viewer
  - HTTP API with page previews for editors`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cvaforms.yaml)")
	flags.String("pdf-path", "", "source questionnaire PDF, path or URL")
	flags.String("font-path", "", "TrueType font embedded into exports, path or URL")
	flags.String("fields-path", "", "field definitions file (.json, .yaml)")
	flags.String("sessions-file", "", "sessions store file")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
}

// initApp loads configuration with flags bound over env and file, then sets up logging and unipdf
func initApp(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	if err := logger.Init(&logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log = logger.Get()

	if cfg.UnidocLicenseKey != "" {
		if err := license.SetMeteredKey(cfg.UnidocLicenseKey); err != nil {
			return fmt.Errorf("failed to set unipdf license key: %w", err)
		}
		log.Debug("unipdf metered license key set")
	}

	appConfig = cfg
	log.Debugf("%s", cfg)
	return nil
}
