package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/facturx/internal/compliance"
)

var checkCmd = &cobra.Command{
	Use:   "check [files...]",
	Short: "Check PDF artifacts for Factur-X compliance",
	Long: `Check one or more PDF files for Factur-X compliance at a profile:
PDF/A-3B identification, Factur-X XMP metadata, the factur-x.xml
attachment and the embedded XML itself.

Examples:
  facturx check invoice.pdf
  facturx check *.pdf --profile BASIC_WL -f table`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// fileCheck pairs a compliance report with its source file
type fileCheck struct {
	File   string             `json:"file"`
	Report *compliance.Report `json:"report"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	profile, err := selectedProfile()
	if err != nil {
		return err
	}

	checker := compliance.NewChecker()
	results := make([]fileCheck, 0, len(args))
	allCompliant := true

	for _, file := range args {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}

		report, err := checker.Check(data, profile)
		if err != nil {
			return err
		}

		results = append(results, fileCheck{File: file, Report: report})
		if !report.Compliant {
			allCompliant = false
		}
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Report.Compliant {
				fmt.Printf("✓ %s: COMPLIANT (%s)\n", r.File, r.Report.Profile)
				continue
			}
			fmt.Printf("✗ %s: NOT COMPLIANT (%s)\n", r.File, r.Report.Profile)
			for _, check := range r.Report.Checks {
				if !check.Passed {
					fmt.Printf("  - %s: %s\n", check.Name, check.Detail)
				}
			}
		}
	}

	if !allCompliant {
		return fmt.Errorf("compliance check failed for some files")
	}
	return nil
}
