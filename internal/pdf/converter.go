package pdf

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rezonia/facturx/internal/model"
)

// Converter converts plain PDFs to PDF/A-3B using the external
// Ghostscript binary. Conversion is all-or-nothing: any tool failure
// surfaces as a ToolError, never a partial artifact.
type Converter struct {
	gsPath    string
	available bool
	timeout   time.Duration
}

// ConverterOption customizes a Converter
type ConverterOption func(*Converter)

// WithGhostscriptPath overrides binary autodetection
func WithGhostscriptPath(path string) ConverterOption {
	return func(c *Converter) {
		if path != "" {
			c.gsPath = path
			c.available = true
		}
	}
}

// WithTimeout sets the per-conversion execution timeout
func WithTimeout(d time.Duration) ConverterOption {
	return func(c *Converter) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewConverter creates a converter, locating Ghostscript automatically
func NewConverter(opts ...ConverterOption) *Converter {
	path, available := detectGhostscript()
	c := &Converter{
		gsPath:    path,
		available: available,
		timeout:   2 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert converts the input PDF to PDF/A-3B and returns the new bytes
func (c *Converter) Convert(ctx context.Context, data []byte) ([]byte, error) {
	if !c.available {
		return nil, model.NewToolError("ghostscript", "gs binary not found, install ghostscript", nil)
	}

	dir, err := os.MkdirTemp("", "facturx-convert-*")
	if err != nil {
		return nil, model.NewToolError("ghostscript", "failed to create temp dir", err)
	}
	defer os.RemoveAll(dir)

	inFile := filepath.Join(dir, "input.pdf")
	outFile := filepath.Join(dir, "output.pdf")
	if err := os.WriteFile(inFile, data, 0o600); err != nil {
		return nil, model.NewToolError("ghostscript", "failed to write temp input", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.gsPath,
		"-dPDFA=3",
		"-dBATCH",
		"-dNOPAUSE",
		"-sColorConversionStrategy=RGB",
		"-sProcessColorModel=DeviceRGB",
		"-sDEVICE=pdfwrite",
		"-dPDFACompatibilityPolicy=1",
		"-sOutputFile="+outFile,
		inFile,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		te := model.NewToolError("ghostscript", "conversion failed", err)
		te.Stderr = tail(stderr.String(), 512)
		if ctx.Err() == context.DeadlineExceeded {
			te.Message = "conversion timed out"
		}
		return nil, te
	}

	out, err := os.ReadFile(outFile)
	if err != nil {
		return nil, model.NewToolError("ghostscript", "converter produced no output file", err)
	}
	if len(out) == 0 {
		return nil, model.NewToolError("ghostscript", "converter produced an empty output file", nil)
	}
	return out, nil
}

// IsAvailable returns whether the Ghostscript binary was found
func (c *Converter) IsAvailable() bool {
	return c.available
}

// Path returns the detected Ghostscript path (for diagnostics)
func (c *Converter) Path() string {
	return c.gsPath
}

// detectGhostscript looks for gs in common locations
func detectGhostscript() (string, bool) {
	paths := []string{
		"gs",                   // PATH
		"/usr/bin/gs",          // Linux
		"/opt/homebrew/bin/gs", // macOS Homebrew ARM
		"/usr/local/bin/gs",    // macOS Homebrew Intel
	}

	for _, p := range paths {
		if path, err := exec.LookPath(p); err == nil {
			return path, true
		}
	}
	return "", false
}

// GetInstallInstructions returns platform-specific installation instructions
func GetInstallInstructions() string {
	return `Ghostscript is required for PDF/A-3 conversion.

Installation:
  - Ubuntu/Debian: sudo apt install ghostscript
  - macOS:         brew install ghostscript
  - Fedora/RHEL:   sudo dnf install ghostscript
  - Windows:       https://ghostscript.com/releases/gsdnld.html

After installation, ensure 'gs' is in your PATH.`
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
