// Package pipeline orchestrates the full artifact build: base PDF,
// PDF/A-3B conversion, XML encoding, embedding, metadata and the final
// compliance check.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rezonia/facturx/internal/cii"
	"github.com/rezonia/facturx/internal/compliance"
	"github.com/rezonia/facturx/internal/model"
	"github.com/rezonia/facturx/internal/pdf"
	"github.com/rezonia/facturx/internal/validation"
)

// Status describes where an artifact build ended up
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusGenerated    Status = "GENERATED"
	StatusCompliant    Status = "COMPLIANT"
	StatusNonCompliant Status = "NON_COMPLIANT"
	StatusFailed       Status = "FAILED"
)

// StageTiming records how long one pipeline stage took
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// Result bundles everything a pipeline run produced
type Result struct {
	RunID      string             `json:"run_id"`
	Status     Status             `json:"status"`
	Artifact   []byte             `json:"-"`
	XML        []byte             `json:"-"`
	Validation *validation.Report `json:"validation,omitempty"`
	Compliance *compliance.Report `json:"compliance,omitempty"`
	Timings    []StageTiming      `json:"timings,omitempty"`
	Err        error              `json:"-"`
}

// Pipeline builds Factur-X artifacts end to end
type Pipeline struct {
	encoder   *cii.Encoder
	validator *validation.Validator
	composer  *pdf.Composer
	converter *pdf.Converter
	embedder  *pdf.Embedder
	injector  *pdf.MetadataInjector
	checker   *compliance.Checker
	log       zerolog.Logger

	// keepScratch leaves the per-run scratch directory behind for
	// debugging instead of removing it
	keepScratch bool
	scratchRoot string
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithConverter replaces the default Ghostscript converter
func WithConverter(c *pdf.Converter) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.converter = c
		}
	}
}

// WithLogger sets the logger used for stage instrumentation
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithKeepScratch preserves intermediate files for inspection
func WithKeepScratch() Option {
	return func(p *Pipeline) { p.keepScratch = true }
}

// NewPipeline creates a pipeline with default components
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		encoder:     cii.NewEncoder(),
		validator:   validation.NewValidator(),
		composer:    pdf.NewComposer(),
		converter:   pdf.NewConverter(),
		embedder:    pdf.NewEmbedder(),
		injector:    pdf.NewMetadataInjector(),
		checker:     compliance.NewChecker(),
		log:         zerolog.Nop(),
		scratchRoot: os.TempDir(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ConverterAvailable reports whether the PDF/A converter can run
func (p *Pipeline) ConverterAvailable() bool {
	return p.converter.IsAvailable()
}

// ComposeArtifact runs the full pipeline. The returned Result always
// has a Status; on failure Err holds the stage error as well.
func (p *Pipeline) ComposeArtifact(ctx context.Context, inv *model.Invoice, profile model.Profile) (*Result, error) {
	result := &Result{
		RunID:  uuid.NewString(),
		Status: StatusPending,
	}
	log := p.log.With().Str("run_id", result.RunID).Str("invoice", inv.Number).Str("profile", string(profile)).Logger()

	scratch := filepath.Join(p.scratchRoot, "facturx-"+result.RunID)
	if err := os.MkdirAll(scratch, 0o700); err != nil {
		result.Status = StatusFailed
		result.Err = model.NewToolError("pipeline", "failed to create scratch directory", err)
		return result, result.Err
	}
	defer func() {
		if p.keepScratch {
			log.Debug().Str("dir", scratch).Msg("scratch directory kept")
			return
		}
		os.RemoveAll(scratch)
	}()

	fail := func(stage string, err error) (*Result, error) {
		log.Error().Str("stage", stage).Err(err).Msg("pipeline stage failed")
		result.Status = StatusFailed
		result.Err = err
		return result, err
	}

	stage := func(name string, fn func() error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		err := fn()
		elapsed := time.Since(start)
		result.Timings = append(result.Timings, StageTiming{Stage: name, Duration: elapsed})
		ev := log.Debug()
		if err != nil {
			ev = log.Error().Err(err)
		}
		ev.Str("stage", name).Dur("took", elapsed).Msg("pipeline stage")
		return err
	}

	// 1. Encode the CII XML first so invalid input fails before any
	// rendering or the out-of-process conversion
	if err := stage("encode", func() (err error) {
		result.XML, err = p.encoder.Encode(inv, profile)
		if err == nil {
			err = dump(scratch, pdf.AttachmentName, result.XML)
		}
		return err
	}); err != nil {
		return fail("encode", err)
	}

	// 2. Validate the XML against the profile. Rule failures are not
	// fatal here; they resurface in the final compliance report.
	if err := stage("validate", func() (err error) {
		result.Validation, err = p.validator.Validate(result.XML, profile)
		return err
	}); err != nil {
		return fail("validate", err)
	}
	if !result.Validation.Valid {
		log.Warn().Int("failures", len(result.Validation.Failures())).Msg("encoded XML failed profile validation")
	}

	// 3. Compose the visual base PDF
	var base []byte
	if err := stage("compose", func() (err error) {
		base, err = p.composer.Compose(inv)
		if err == nil {
			err = dump(scratch, "base.pdf", base)
		}
		return err
	}); err != nil {
		return fail("compose", err)
	}

	// 4. Convert to PDF/A-3B via Ghostscript
	var converted []byte
	if err := stage("convert", func() (err error) {
		converted, err = p.converter.Convert(ctx, base)
		if err == nil {
			err = dump(scratch, "pdfa3b.pdf", converted)
		}
		return err
	}); err != nil {
		return fail("convert", err)
	}

	// 5. Embed the XML attachment
	var embedded []byte
	if err := stage("embed", func() (err error) {
		embedded, err = p.embedder.Embed(converted, result.XML)
		return err
	}); err != nil {
		return fail("embed", err)
	}

	// 6. Inject the Factur-X XMP metadata
	if err := stage("metadata", func() (err error) {
		result.Artifact, err = p.injector.Inject(embedded, inv, profile)
		if err == nil {
			err = dump(scratch, "facturx.pdf", result.Artifact)
		}
		return err
	}); err != nil {
		return fail("metadata", err)
	}
	result.Status = StatusGenerated

	// 7. Final compliance check
	if err := stage("check", func() (err error) {
		result.Compliance, err = p.checker.Check(result.Artifact, profile)
		return err
	}); err != nil {
		return fail("check", err)
	}

	if result.Compliance.Compliant {
		result.Status = StatusCompliant
	} else {
		result.Status = StatusNonCompliant
	}
	log.Info().Str("status", string(result.Status)).Int("artifact_bytes", len(result.Artifact)).Msg("pipeline finished")

	return result, nil
}

func dump(dir, name string, data []byte) error {
	return os.WriteFile(filepath.Join(dir, name), data, 0o600)
}
