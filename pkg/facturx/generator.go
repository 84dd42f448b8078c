package facturx

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rezonia/facturx/internal/cii"
	"github.com/rezonia/facturx/internal/compliance"
	"github.com/rezonia/facturx/internal/pdf"
	"github.com/rezonia/facturx/internal/pipeline"
	"github.com/rezonia/facturx/internal/validation"
)

// GeneratorOptions configures a Generator
type GeneratorOptions struct {
	// GhostscriptPath overrides Ghostscript auto-detection
	GhostscriptPath string
	// ConvertTimeout bounds a single PDF/A conversion
	ConvertTimeout time.Duration
	// Logger receives pipeline stage instrumentation
	Logger zerolog.Logger
}

// DefaultGeneratorOptions returns the default options
func DefaultGeneratorOptions() GeneratorOptions {
	return GeneratorOptions{
		ConvertTimeout: 2 * time.Minute,
		Logger:         zerolog.Nop(),
	}
}

// Generator is the main entry point for Factur-X operations
type Generator struct {
	encoder   *cii.Encoder
	validator *validation.Validator
	checker   *compliance.Checker
	pipeline  *pipeline.Pipeline
}

// NewGenerator creates a generator with default options
func NewGenerator() *Generator {
	return NewGeneratorWithOptions(DefaultGeneratorOptions())
}

// NewGeneratorWithOptions creates a generator with the given options
func NewGeneratorWithOptions(opts GeneratorOptions) *Generator {
	var convOpts []pdf.ConverterOption
	if opts.GhostscriptPath != "" {
		convOpts = append(convOpts, pdf.WithGhostscriptPath(opts.GhostscriptPath))
	}
	if opts.ConvertTimeout > 0 {
		convOpts = append(convOpts, pdf.WithTimeout(opts.ConvertTimeout))
	}

	return &Generator{
		encoder:   cii.NewEncoder(),
		validator: validation.NewValidator(),
		checker:   compliance.NewChecker(),
		pipeline: pipeline.NewPipeline(
			pipeline.WithConverter(pdf.NewConverter(convOpts...)),
			pipeline.WithLogger(opts.Logger),
		),
	}
}

// GenerateXML encodes an invoice as Cross Industry Invoice XML for the
// given profile. Totals are computed from the line items.
func (g *Generator) GenerateXML(inv *Invoice, profile Profile) ([]byte, error) {
	return g.encoder.Encode(inv, profile)
}

// Validate checks CII XML against the rules of a profile
func (g *Generator) Validate(xml []byte, profile Profile) (*ValidationReport, error) {
	return g.validator.Validate(xml, profile)
}

// ComposeArtifact builds the complete Factur-X artifact: visual PDF,
// PDF/A-3B conversion, embedded XML and XMP metadata, followed by a
// compliance check. Requires Ghostscript.
func (g *Generator) ComposeArtifact(ctx context.Context, inv *Invoice, profile Profile) (*Result, error) {
	return g.pipeline.ComposeArtifact(ctx, inv, profile)
}

// Check inspects an existing PDF for Factur-X compliance at a profile
func (g *Generator) Check(pdfData []byte, profile Profile) (*ComplianceReport, error) {
	return g.checker.Check(pdfData, profile)
}

// ConverterAvailable reports whether ComposeArtifact can run
func (g *Generator) ConverterAvailable() bool {
	return g.pipeline.ConverterAvailable()
}
