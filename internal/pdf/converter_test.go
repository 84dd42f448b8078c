package pdf_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/facturx/internal/model"
	"github.com/rezonia/facturx/internal/pdf"
)

func TestConvert_BrokenBinary(t *testing.T) {
	c := pdf.NewConverter(pdf.WithGhostscriptPath("/nonexistent/gs"))
	require.True(t, c.IsAvailable())

	_, err := c.Convert(context.Background(), []byte("%PDF-1.4"))
	require.Error(t, err)

	var toolErr *model.ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "ghostscript", toolErr.Tool)
}

func TestConvert_RealGhostscript(t *testing.T) {
	c := pdf.NewConverter(pdf.WithTimeout(time.Minute))
	if !c.IsAvailable() {
		t.Skip("ghostscript not installed")
	}

	base, err := pdf.NewComposer().Compose(sampleInvoice())
	require.NoError(t, err)

	out, err := c.Convert(context.Background(), base)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestConvert_ContextCancelled(t *testing.T) {
	c := pdf.NewConverter()
	if !c.IsAvailable() {
		t.Skip("ghostscript not installed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Convert(ctx, []byte("%PDF-1.4"))
	require.Error(t, err)
}

func TestConverterOptions(t *testing.T) {
	c := pdf.NewConverter(pdf.WithGhostscriptPath("/opt/gs/bin/gs"))
	assert.Equal(t, "/opt/gs/bin/gs", c.Path())
	assert.True(t, c.IsAvailable())
}

func TestGetInstallInstructions(t *testing.T) {
	assert.Contains(t, pdf.GetInstallInstructions(), "ghostscript")
}
