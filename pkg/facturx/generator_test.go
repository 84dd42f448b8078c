package facturx_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/facturx/pkg/facturx"
)

func sampleInvoice() *facturx.Invoice {
	return &facturx.Invoice{
		Number:    "INV-1",
		IssueDate: time.Date(2025, 5, 13, 0, 0, 0, 0, time.UTC),
		DueDate:   time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
		Currency:  "EUR",
		Seller: facturx.Party{
			Name:        "Acme GmbH",
			VATID:       "DE123456789",
			AddressLine: "Hauptstr. 1",
			City:        "Berlin",
			PostCode:    "10115",
			CountryCode: "DE",
		},
		Buyer: facturx.Party{
			Name:        "Beispiel AG",
			AddressLine: "Nebenweg 2",
			City:        "Hamburg",
			PostCode:    "20095",
			CountryCode: "DE",
		},
		PaymentTerms: "30 days net",
		Items: []facturx.LineItem{
			{
				ID:          "1",
				Description: "Widget",
				Quantity:    decimal.NewFromInt(2),
				UnitPrice:   decimal.RequireFromString("10.00"),
				VATRate:     decimal.NewFromInt(20),
			},
		},
	}
}

func TestGenerateXMLAndValidate(t *testing.T) {
	gen := facturx.NewGenerator()

	xml, err := gen.GenerateXML(sampleInvoice(), facturx.ProfileEN16931)
	require.NoError(t, err)
	assert.Contains(t, string(xml), "rsm:CrossIndustryInvoice")

	report, err := gen.Validate(xml, facturx.ProfileEN16931)
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func TestGenerateXML_InvalidInvoice(t *testing.T) {
	gen := facturx.NewGenerator()

	inv := sampleInvoice()
	inv.Currency = "XXX"

	_, err := gen.GenerateXML(inv, facturx.ProfileMinimum)
	require.Error(t, err)

	var inputErr *facturx.InputError
	assert.ErrorAs(t, err, &inputErr)
}

func TestParseProfile(t *testing.T) {
	profile, err := facturx.ParseProfile("basic-wl")
	require.NoError(t, err)
	assert.Equal(t, facturx.ProfileBasicWL, profile)

	_, err = facturx.ParseProfile("PLATINUM")
	assert.Error(t, err)
}

func TestCheck_GarbageInput(t *testing.T) {
	gen := facturx.NewGenerator()

	report, err := gen.Check([]byte("not a pdf"), facturx.ProfileMinimum)
	require.NoError(t, err)
	assert.False(t, report.Compliant)
}
