package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/facturx/internal/model"
)

var (
	version = "1.0.0"

	// Global flags
	verbose        bool
	outputFormat   string
	profileName    string
	gsPath         string
	convertTimeout time.Duration
	logLevel       string
)

var rootCmd = &cobra.Command{
	Use:   "facturx",
	Short: "Generate and check Factur-X (ZUGFeRD) e-invoices",
	Long: `facturx builds hybrid e-invoices: a PDF/A-3B document with the
machine-readable CII XML embedded as factur-x.xml.

Profiles (cumulative):
  - MINIMUM   core identification fields
  - BASIC_WL  adds addresses, payment terms and line items
  - EN16931   adds VAT registration, due date and total consistency

Examples:
  # Generate the CII XML for an invoice
  facturx generate invoice.json --profile EN16931

  # Validate an existing XML file
  facturx validate factur-x.xml --profile BASIC_WL

  # Build the full PDF/A-3 artifact (requires Ghostscript)
  facturx compose invoice.json -o invoice.pdf

  # Check an existing artifact
  facturx check invoice.pdf --profile EN16931`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, table)")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "EN16931", "Factur-X profile (env: FACTURX_PROFILE)")
	rootCmd.PersistentFlags().StringVar(&gsPath, "gs-path", "", "Path to the Ghostscript binary (env: FACTURX_GS_PATH)")
	rootCmd.PersistentFlags().DurationVar(&convertTimeout, "timeout", 2*time.Minute, "PDF/A conversion timeout")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (env: FACTURX_LOG_LEVEL)")

	// Load from environment variables if not set via flags
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if !rootCmd.PersistentFlags().Changed("profile") {
		if env := os.Getenv("FACTURX_PROFILE"); env != "" {
			profileName = env
		}
	}
	if gsPath == "" {
		gsPath = os.Getenv("FACTURX_GS_PATH")
	}
	if !rootCmd.PersistentFlags().Changed("timeout") {
		if env := os.Getenv("FACTURX_TIMEOUT"); env != "" {
			if d, err := time.ParseDuration(env); err == nil {
				convertTimeout = d
			}
		}
	}
	if !rootCmd.PersistentFlags().Changed("log-level") {
		if env := os.Getenv("FACTURX_LOG_LEVEL"); env != "" {
			logLevel = env
		}
	}
}

func selectedProfile() (model.Profile, error) {
	return model.ParseProfile(profileName)
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
