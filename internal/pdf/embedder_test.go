package pdf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/facturx/internal/cii"
	"github.com/rezonia/facturx/internal/model"
	"github.com/rezonia/facturx/internal/pdf"
)

func composeBase(t *testing.T) []byte {
	t.Helper()
	base, err := pdf.NewComposer().Compose(sampleInvoice())
	require.NoError(t, err)
	return base
}

func encodeXML(t *testing.T) []byte {
	t.Helper()
	xml, err := cii.NewEncoder().Encode(sampleInvoice(), model.ProfileEN16931)
	require.NoError(t, err)
	return xml
}

func TestEmbed_RoundTrip(t *testing.T) {
	base := composeBase(t)
	xml := encodeXML(t)

	out, err := pdf.NewEmbedder().Embed(base, xml)
	require.NoError(t, err)

	insp, err := pdf.Inspect(out)
	require.NoError(t, err)

	assert.Equal(t, 1, insp.NameTreeCount)
	assert.Equal(t, 1, insp.AFCount)
	assert.True(t, insp.AFRelationshipData)
	assert.Equal(t, xml, insp.XML)
}

func TestEmbed_Idempotent(t *testing.T) {
	base := composeBase(t)
	xml := encodeXML(t)
	embedder := pdf.NewEmbedder()

	once, err := embedder.Embed(base, xml)
	require.NoError(t, err)
	twice, err := embedder.Embed(once, xml)
	require.NoError(t, err)

	insp, err := pdf.Inspect(twice)
	require.NoError(t, err)

	// Still exactly one attachment and one /AF entry
	assert.Equal(t, 1, insp.NameTreeCount)
	assert.Equal(t, 1, insp.AFCount)
	assert.Equal(t, xml, insp.XML)
}

func TestEmbed_ReplacesContent(t *testing.T) {
	base := composeBase(t)
	embedder := pdf.NewEmbedder()

	first, err := embedder.Embed(base, []byte("<old/>"))
	require.NoError(t, err)

	updated := encodeXML(t)
	second, err := embedder.Embed(first, updated)
	require.NoError(t, err)

	insp, err := pdf.Inspect(second)
	require.NoError(t, err)
	assert.Equal(t, updated, insp.XML)
}

func TestEmbed_NotAPDF(t *testing.T) {
	_, err := pdf.NewEmbedder().Embed([]byte("definitely not a pdf"), []byte("<x/>"))
	require.Error(t, err)
}

func TestInspect_PlainPDF(t *testing.T) {
	insp, err := pdf.Inspect(composeBase(t))
	require.NoError(t, err)

	assert.Equal(t, 0, insp.NameTreeCount)
	assert.Equal(t, 0, insp.AFCount)
	assert.Nil(t, insp.XML)
}
