package compliance_test

import (
	"testing"
	"time"

	dec "github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/facturx/internal/cii"
	"github.com/rezonia/facturx/internal/compliance"
	"github.com/rezonia/facturx/internal/model"
	"github.com/rezonia/facturx/internal/pdf"
)

func sampleInvoice() *model.Invoice {
	return &model.Invoice{
		Number:       "INV-1",
		IssueDate:    time.Date(2025, 5, 13, 0, 0, 0, 0, time.UTC),
		DueDate:      time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
		Currency:     "EUR",
		PaymentTerms: "Payable within 30 days",
		Seller: model.Party{
			Name:        "Acme GmbH",
			VATID:       "DE123456789",
			AddressLine: "Musterstr. 1",
			City:        "Berlin",
			PostCode:    "10115",
			CountryCode: "DE",
		},
		Buyer: model.Party{
			Name:        "Beispiel AG",
			AddressLine: "Beispielweg 2",
			City:        "Hamburg",
			PostCode:    "20095",
			CountryCode: "DE",
		},
		Items: []model.LineItem{
			{
				ID:          "1",
				Description: "Widget",
				Quantity:    dec.NewFromInt(2),
				UnitPrice:   dec.RequireFromString("10.00"),
				VATRate:     dec.NewFromInt(20),
			},
		},
	}
}

// buildArtifact assembles a hybrid invoice without the PDF/A
// conversion step, which the checker does not depend on.
func buildArtifact(t *testing.T, profile model.Profile) []byte {
	t.Helper()
	inv := sampleInvoice()

	base, err := pdf.NewComposer().Compose(inv)
	require.NoError(t, err)

	xml, err := cii.NewEncoder().Encode(inv, profile)
	require.NoError(t, err)

	embedded, err := pdf.NewEmbedder().Embed(base, xml)
	require.NoError(t, err)

	out, err := pdf.NewMetadataInjector().Inject(embedded, inv, profile)
	require.NoError(t, err)
	return out
}

func checkNames(report *compliance.Report) map[string]bool {
	out := make(map[string]bool)
	for _, c := range report.Checks {
		out[c.Name] = c.Passed
	}
	return out
}

func TestCheck_CompliantArtifact(t *testing.T) {
	for _, profile := range []model.Profile{model.ProfileMinimum, model.ProfileBasicWL, model.ProfileEN16931} {
		t.Run(string(profile), func(t *testing.T) {
			artifact := buildArtifact(t, profile)

			report, err := compliance.NewChecker().Check(artifact, profile)
			require.NoError(t, err)
			assert.True(t, report.Compliant, "checks: %+v", report.Checks)
			require.NotNil(t, report.Validation)
			assert.True(t, report.Validation.Valid)
		})
	}
}

func TestCheck_ProfileMismatch(t *testing.T) {
	artifact := buildArtifact(t, model.ProfileEN16931)

	report, err := compliance.NewChecker().Check(artifact, model.ProfileBasicWL)
	require.NoError(t, err)

	passed := checkNames(report)
	assert.False(t, report.Compliant)
	assert.False(t, passed[compliance.CheckFxMetadata])
	// The XML itself still satisfies the weaker profile
	assert.True(t, passed[compliance.CheckXMLProfile])
}

func TestCheck_GarbageInput(t *testing.T) {
	report, err := compliance.NewChecker().Check([]byte("this is not a pdf at all"), model.ProfileMinimum)
	require.NoError(t, err)

	assert.False(t, report.Compliant)
	require.NotEmpty(t, report.Checks)
	assert.Equal(t, compliance.CheckPDFReadable, report.Checks[0].Name)
	assert.False(t, report.Checks[0].Passed)

	// Every downstream check is reported as failed, not omitted
	assert.Len(t, report.Checks, 7)
	for _, c := range report.Checks {
		assert.False(t, c.Passed, c.Name)
	}
}

func TestCheck_MissingAttachment(t *testing.T) {
	inv := sampleInvoice()
	base, err := pdf.NewComposer().Compose(inv)
	require.NoError(t, err)
	withMeta, err := pdf.NewMetadataInjector().Inject(base, inv, model.ProfileEN16931)
	require.NoError(t, err)

	report, err := compliance.NewChecker().Check(withMeta, model.ProfileEN16931)
	require.NoError(t, err)

	passed := checkNames(report)
	assert.False(t, report.Compliant)
	assert.True(t, passed[compliance.CheckPDFAIdent])
	assert.False(t, passed[compliance.CheckAttachment])
	assert.False(t, passed[compliance.CheckXMLWellFormed])
}

func TestCheck_MissingMetadata(t *testing.T) {
	inv := sampleInvoice()
	base, err := pdf.NewComposer().Compose(inv)
	require.NoError(t, err)

	xml, err := cii.NewEncoder().Encode(inv, model.ProfileEN16931)
	require.NoError(t, err)
	embedded, err := pdf.NewEmbedder().Embed(base, xml)
	require.NoError(t, err)

	report, err := compliance.NewChecker().Check(embedded, model.ProfileEN16931)
	require.NoError(t, err)

	passed := checkNames(report)
	assert.False(t, report.Compliant)
	assert.False(t, passed[compliance.CheckPDFAIdent])
	assert.False(t, passed[compliance.CheckFxMetadata])
	assert.False(t, passed[compliance.CheckXMPConsistent])
	assert.True(t, passed[compliance.CheckAttachment])
	assert.True(t, passed[compliance.CheckXMLProfile])
}

func TestCheck_MetadataNamesDifferentInvoice(t *testing.T) {
	inv := sampleInvoice()
	base, err := pdf.NewComposer().Compose(inv)
	require.NoError(t, err)

	xml, err := cii.NewEncoder().Encode(inv, model.ProfileEN16931)
	require.NoError(t, err)
	embedded, err := pdf.NewEmbedder().Embed(base, xml)
	require.NoError(t, err)

	// metadata written for another invoice number than the XML carries
	other := sampleInvoice()
	other.Number = "INV-999"
	artifact, err := pdf.NewMetadataInjector().Inject(embedded, other, model.ProfileEN16931)
	require.NoError(t, err)

	report, err := compliance.NewChecker().Check(artifact, model.ProfileEN16931)
	require.NoError(t, err)

	passed := checkNames(report)
	assert.False(t, report.Compliant)
	assert.True(t, passed[compliance.CheckFxMetadata])
	assert.True(t, passed[compliance.CheckXMLWellFormed])
	assert.False(t, passed[compliance.CheckXMPConsistent])
}

func TestCheck_DeterministicOrder(t *testing.T) {
	artifact := buildArtifact(t, model.ProfileEN16931)
	checker := compliance.NewChecker()

	first, err := checker.Check(artifact, model.ProfileEN16931)
	require.NoError(t, err)
	second, err := checker.Check(artifact, model.ProfileEN16931)
	require.NoError(t, err)

	require.Equal(t, len(first.Checks), len(second.Checks))
	for i := range first.Checks {
		assert.Equal(t, first.Checks[i].Name, second.Checks[i].Name)
	}
}

func TestCheck_UnknownProfile(t *testing.T) {
	_, err := compliance.NewChecker().Check([]byte("%PDF"), model.Profile("EXTENDED"))
	require.Error(t, err)
}
