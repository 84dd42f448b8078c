package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/facturx/internal/logging"
	"github.com/rezonia/facturx/internal/pdf"
	"github.com/rezonia/facturx/internal/pipeline"
)

var (
	composeOutput string
	composeXMLOut string
	keepScratch   bool
)

var composeCmd = &cobra.Command{
	Use:   "compose <invoice.json>",
	Short: "Build the full Factur-X PDF/A-3 artifact",
	Long: `Build the complete Factur-X artifact for an invoice: render the
visual PDF, convert it to PDF/A-3B with Ghostscript, embed the CII
XML as factur-x.xml and write the Factur-X XMP metadata. The result
is compliance-checked before it is written.

Requires Ghostscript. Install it with your package manager if the
command reports the converter as unavailable.

Examples:
  facturx compose invoice.json -o invoice.pdf
  facturx compose invoice.json -o invoice.pdf --xml-output factur-x.xml
  facturx compose invoice.json -o invoice.pdf --gs-path /opt/gs/bin/gs`,
	Args: cobra.ExactArgs(1),
	RunE: runCompose,
}

func init() {
	rootCmd.AddCommand(composeCmd)

	composeCmd.Flags().StringVarP(&composeOutput, "output", "o", "invoice.pdf", "Output PDF file")
	composeCmd.Flags().StringVar(&composeXMLOut, "xml-output", "", "Also write the embedded XML to this file")
	composeCmd.Flags().BoolVar(&keepScratch, "keep-scratch", false, "Keep intermediate files for debugging")
}

func runCompose(cmd *cobra.Command, args []string) error {
	profile, err := selectedProfile()
	if err != nil {
		return err
	}

	inv, err := readInvoice(args[0])
	if err != nil {
		return err
	}

	var convOpts []pdf.ConverterOption
	if gsPath != "" {
		convOpts = append(convOpts, pdf.WithGhostscriptPath(gsPath))
	}
	if convertTimeout > 0 {
		convOpts = append(convOpts, pdf.WithTimeout(convertTimeout))
	}
	converter := pdf.NewConverter(convOpts...)

	if !converter.IsAvailable() {
		fmt.Fprintln(os.Stderr, pdf.GetInstallInstructions())
		return fmt.Errorf("ghostscript not found")
	}

	opts := []pipeline.Option{
		pipeline.WithConverter(converter),
		pipeline.WithLogger(logging.New(logging.Config{Console: true, Level: logLevel})),
	}
	if keepScratch {
		opts = append(opts, pipeline.WithKeepScratch())
	}

	result, err := pipeline.NewPipeline(opts...).ComposeArtifact(context.Background(), inv, profile)
	if err != nil {
		return err
	}

	if err := os.WriteFile(composeOutput, result.Artifact, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", composeOutput, err)
	}
	if composeXMLOut != "" {
		if err := os.WriteFile(composeXMLOut, result.XML, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", composeXMLOut, err)
		}
	}

	fmt.Printf("Wrote %s (%d bytes, %s, run %s)\n", composeOutput, len(result.Artifact), result.Status, result.RunID)

	if result.Status != pipeline.StatusCompliant {
		for _, check := range result.Compliance.Checks {
			if !check.Passed {
				fmt.Printf("  ✗ %s: %s\n", check.Name, check.Detail)
			}
		}
		return fmt.Errorf("artifact is not compliant at profile %s", profile)
	}
	return nil
}
