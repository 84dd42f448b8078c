package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/facturx/internal/cii"
	"github.com/rezonia/facturx/internal/model"
)

var generateOutput string

var generateCmd = &cobra.Command{
	Use:   "generate <invoice.json>",
	Short: "Generate the CII XML for an invoice",
	Long: `Generate the Cross Industry Invoice XML for an invoice described
as JSON. Totals are computed from the line items, so they may be
omitted from the input.

Examples:
  facturx generate invoice.json
  facturx generate invoice.json --profile MINIMUM -o factur-x.xml`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output file (default: stdout)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	profile, err := selectedProfile()
	if err != nil {
		return err
	}

	inv, err := readInvoice(args[0])
	if err != nil {
		return err
	}

	printVerbose("Encoding %s at profile %s\n", inv.Number, profile)

	xml, err := cii.NewEncoder().Encode(inv, profile)
	if err != nil {
		return err
	}

	if generateOutput == "" {
		_, err = os.Stdout.Write(xml)
		return err
	}
	if err := os.WriteFile(generateOutput, xml, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", generateOutput, err)
	}
	printVerbose("Wrote %s (%d bytes)\n", generateOutput, len(xml))
	return nil
}

func readInvoice(path string) (*model.Invoice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var inv model.Invoice
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &inv, nil
}
