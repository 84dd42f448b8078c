package validation_test

import (
	"strings"
	"testing"
	"time"

	dec "github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/facturx/internal/cii"
	"github.com/rezonia/facturx/internal/model"
	"github.com/rezonia/facturx/internal/validation"
)

func fullInvoice() *model.Invoice {
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

func encodeInvoice(t *testing.T, inv *model.Invoice, profile model.Profile) []byte {
	t.Helper()
	out, err := cii.NewEncoder().Encode(inv, profile)
	require.NoError(t, err)
	return out
}

func TestValidate_FullInvoiceAllProfiles(t *testing.T) {
	v := validation.NewValidator()
	xml := encodeInvoice(t, fullInvoice(), model.ProfileEN16931)

	for _, profile := range []model.Profile{model.ProfileMinimum, model.ProfileBasicWL, model.ProfileEN16931} {
		t.Run(string(profile), func(t *testing.T) {
			report, err := v.Validate(xml, profile)
			require.NoError(t, err)
			assert.True(t, report.Valid, "failures: %+v", report.Failures())
		})
	}
}

func TestValidate_CumulativeTiers(t *testing.T) {
	v := validation.NewValidator()
	xml := encodeInvoice(t, fullInvoice(), model.ProfileEN16931)

	minReport, err := v.Validate(xml, model.ProfileMinimum)
	require.NoError(t, err)
	enReport, err := v.Validate(xml, model.ProfileEN16931)
	require.NoError(t, err)

	// EN16931 evaluates a strict superset of the MINIMUM rules
	assert.Greater(t, len(enReport.Results), len(minReport.Results))

	ids := make(map[string]bool)
	for _, res := range enReport.Results {
		ids[res.ID] = true
	}
	for _, res := range minReport.Results {
		assert.True(t, ids[res.ID], "rule %s missing from EN16931 run", res.ID)
	}
}

func TestValidate_MissingSellerVAT(t *testing.T) {
	v := validation.NewValidator()

	inv := fullInvoice()
	inv.Seller.VATID = ""
	xml := encodeInvoice(t, inv, model.ProfileEN16931)

	// Passes the weaker profiles
	for _, profile := range []model.Profile{model.ProfileMinimum, model.ProfileBasicWL} {
		report, err := v.Validate(xml, profile)
		require.NoError(t, err)
		assert.True(t, report.Valid, "failures: %+v", report.Failures())
	}

	// Fails EN16931 on exactly the VAT rule
	report, err := v.Validate(xml, model.ProfileEN16931)
	require.NoError(t, err)
	assert.False(t, report.Valid)

	failures := report.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "EN-SELLER-VAT", failures[0].ID)
}

func TestValidate_MissingAddresses(t *testing.T) {
	v := validation.NewValidator()

	inv := fullInvoice()
	inv.Seller.CountryCode = ""
	inv.Buyer.CountryCode = ""
	xml := encodeInvoice(t, inv, model.ProfileBasicWL)

	minReport, err := v.Validate(xml, model.ProfileMinimum)
	require.NoError(t, err)
	assert.True(t, minReport.Valid)

	report, err := v.Validate(xml, model.ProfileBasicWL)
	require.NoError(t, err)
	assert.False(t, report.Valid)

	var ids []string
	for _, f := range report.Failures() {
		ids = append(ids, f.ID)
	}
	assert.Contains(t, ids, "BWL-SELLER-ADDRESS")
	assert.Contains(t, ids, "BWL-BUYER-ADDRESS")
}

func TestValidate_InconsistentTotals(t *testing.T) {
	v := validation.NewValidator()

	xml := encodeInvoice(t, fullInvoice(), model.ProfileEN16931)
	tampered := []byte(strings.Replace(string(xml),
		"<ram:GrandTotalAmount>24.00</ram:GrandTotalAmount>",
		"<ram:GrandTotalAmount>99.00</ram:GrandTotalAmount>", 1))

	report, err := v.Validate(tampered, model.ProfileEN16931)
	require.NoError(t, err)
	assert.False(t, report.Valid)

	var ids []string
	for _, f := range report.Failures() {
		ids = append(ids, f.ID)
	}
	assert.Contains(t, ids, "EN-TOTALS-CONSISTENT")
}

func TestValidate_UnknownCurrencyCode(t *testing.T) {
	v := validation.NewValidator()

	// the encoder refuses unknown currencies, so tamper after encoding
	xml := encodeInvoice(t, fullInvoice(), model.ProfileEN16931)
	tampered := []byte(strings.Replace(string(xml),
		"<ram:InvoiceCurrencyCode>EUR</ram:InvoiceCurrencyCode>",
		"<ram:InvoiceCurrencyCode>XXX</ram:InvoiceCurrencyCode>", 1))
	require.NotEqual(t, string(xml), string(tampered))

	for _, profile := range []model.Profile{model.ProfileMinimum, model.ProfileBasicWL, model.ProfileEN16931} {
		t.Run(string(profile), func(t *testing.T) {
			report, err := v.Validate(tampered, profile)
			require.NoError(t, err)
			assert.False(t, report.Valid)

			var ids []string
			for _, f := range report.Failures() {
				ids = append(ids, f.ID)
			}
			assert.Contains(t, ids, "MIN-CURRENCY")
		})
	}
}

func TestValidate_MalformedXML(t *testing.T) {
	v := validation.NewValidator()

	report, err := v.Validate([]byte("<rsm:CrossIndustryInvoice>"), model.ProfileMinimum)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	require.NotEmpty(t, report.Results)
	assert.Equal(t, "XML-PARSE", report.Results[0].ID)
}

func TestValidate_TextMentionsAreNotElements(t *testing.T) {
	v := validation.NewValidator()

	// Every required element name appears as text, none as actual elements
	doc := []byte(`<?xml version="1.0"?><root>
		CrossIndustryInvoice ExchangedDocument GrandTotalAmount
		SellerTradeParty BuyerTradeParty InvoiceCurrencyCode
	</root>`)

	report, err := v.Validate(doc, model.ProfileMinimum)
	require.NoError(t, err)
	assert.False(t, report.Valid)

	// Everything except the well-formedness rule fails
	for _, res := range report.Results[1:] {
		assert.False(t, res.Passed, res.ID)
	}
}

func TestValidate_DeterministicOrder(t *testing.T) {
	v := validation.NewValidator()
	xml := encodeInvoice(t, fullInvoice(), model.ProfileEN16931)

	first, err := v.Validate(xml, model.ProfileEN16931)
	require.NoError(t, err)
	second, err := v.Validate(xml, model.ProfileEN16931)
	require.NoError(t, err)

	require.Equal(t, len(first.Results), len(second.Results))
	for i := range first.Results {
		assert.Equal(t, first.Results[i].ID, second.Results[i].ID)
	}
}

func TestValidate_UnknownProfile(t *testing.T) {
	v := validation.NewValidator()
	_, err := v.Validate([]byte("<x/>"), model.Profile("EXTENDED"))
	require.Error(t, err)
}
