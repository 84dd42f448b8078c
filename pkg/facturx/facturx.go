// Package facturx provides a public API for building and checking
// Factur-X (ZUGFeRD) hybrid e-invoices.
//
// A Factur-X artifact is a PDF/A-3B document carrying the
// machine-readable Cross Industry Invoice XML as an embedded file
// named factur-x.xml.
//
// Example usage:
//
//	gen := facturx.NewGenerator()
//	xml, err := gen.GenerateXML(invoice, facturx.ProfileEN16931)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("factur-x.xml", xml, 0o644)
package facturx

import (
	"github.com/rezonia/facturx/internal/compliance"
	"github.com/rezonia/facturx/internal/model"
	"github.com/rezonia/facturx/internal/pipeline"
	"github.com/rezonia/facturx/internal/validation"
)

// Re-export core types for public API
type (
	Invoice      = model.Invoice
	LineItem     = model.LineItem
	Party        = model.Party
	TaxBreakdown = model.TaxBreakdown
	Profile      = model.Profile
)

// Re-export profiles
const (
	ProfileMinimum = model.ProfileMinimum
	ProfileBasicWL = model.ProfileBasicWL
	ProfileEN16931 = model.ProfileEN16931
)

// Re-export report types
type (
	ValidationReport = validation.Report
	RuleResult       = validation.RuleResult
	ComplianceReport = compliance.Report
	CheckResult      = compliance.CheckResult
	Result           = pipeline.Result
	Status           = pipeline.Status
)

// Re-export artifact statuses
const (
	StatusPending      = pipeline.StatusPending
	StatusGenerated    = pipeline.StatusGenerated
	StatusCompliant    = pipeline.StatusCompliant
	StatusNonCompliant = pipeline.StatusNonCompliant
	StatusFailed       = pipeline.StatusFailed
)

// Re-export error types
type (
	InputError      = model.InputError
	EncodingError   = model.EncodingError
	ToolError       = model.ToolError
	ComplianceError = model.ComplianceError
)

// ParseProfile parses a profile name such as "EN16931" or "basic-wl"
func ParseProfile(s string) (Profile, error) {
	return model.ParseProfile(s)
}
