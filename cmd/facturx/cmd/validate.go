package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/facturx/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate CII XML files against a profile",
	Long: `Validate one or more Factur-X XML files against a profile.

Profiles are cumulative: a file validated at EN16931 is also checked
against every BASIC_WL and MINIMUM rule.

Examples:
  facturx validate factur-x.xml
  facturx validate *.xml --profile BASIC_WL -f table`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// fileReport pairs a validation report with its source file
type fileReport struct {
	File    string                  `json:"file"`
	Profile string                  `json:"profile"`
	Valid   bool                    `json:"valid"`
	Results []validation.RuleResult `json:"results"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	profile, err := selectedProfile()
	if err != nil {
		return err
	}

	validator := validation.NewValidator()
	reports := make([]fileReport, 0, len(args))
	allValid := true

	for _, file := range args {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}

		report, err := validator.Validate(data, profile)
		if err != nil {
			return err
		}

		reports = append(reports, fileReport{
			File:    file,
			Profile: string(report.Profile),
			Valid:   report.Valid,
			Results: report.Results,
		})
		if !report.Valid {
			allValid = false
		}
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			if r.Valid {
				fmt.Printf("✓ %s: VALID (%s)\n", r.File, r.Profile)
				continue
			}
			fmt.Printf("✗ %s: INVALID (%s)\n", r.File, r.Profile)
			for _, res := range r.Results {
				if !res.Passed {
					fmt.Printf("  - %s: %s\n", res.ID, res.Detail)
				}
			}
		}
	}

	if !allValid {
		return fmt.Errorf("validation failed for some files")
	}
	return nil
}
