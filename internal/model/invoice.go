package model

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	facdec "github.com/rezonia/facturx/internal/decimal"
)

// InvoiceTypeCode is the UNTDID 1001 document type code.
// Commercial invoices are always 380.
const InvoiceTypeCode = "380"

// DefaultUnitCode is the UN/ECE Recommendation 20 code used when a line
// item does not specify one ("C62" = one unit).
const DefaultUnitCode = "C62"

// Party represents a trade party (seller or buyer)
type Party struct {
	Name        string `json:"name"`
	VATID       string `json:"vat_id,omitempty"`
	AddressLine string `json:"address_line,omitempty"`
	City        string `json:"city,omitempty"`
	PostCode    string `json:"post_code,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// LineItem represents a single invoice line
type LineItem struct {
	ID               string          `json:"id"`
	Description      string          `json:"description"`
	SellerAssignedID string          `json:"seller_assigned_id,omitempty"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitCode         string          `json:"unit_code,omitempty"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	VATRate          decimal.Decimal `json:"vat_rate"`
	NetTotal         decimal.Decimal `json:"net_total"`
}

// Calculate computes the line net total from quantity and unit price
func (li *LineItem) Calculate() {
	li.NetTotal = facdec.Mul(li.Quantity, li.UnitPrice)
}

// EffectiveUnitCode returns the unit code, falling back to the default
func (li *LineItem) EffectiveUnitCode() string {
	if li.UnitCode == "" {
		return DefaultUnitCode
	}
	return li.UnitCode
}

// TaxBreakdown is the per-rate VAT subtotal used in the settlement block
type TaxBreakdown struct {
	Rate   decimal.Decimal `json:"rate"`
	Basis  decimal.Decimal `json:"basis"`
	Amount decimal.Decimal `json:"amount"`
}

// Invoice is the core invoice structure
type Invoice struct {
	Number           string    `json:"number"`
	IssueDate        time.Time `json:"issue_date"`
	DueDate          time.Time `json:"due_date,omitempty"`
	DeliveryDate     time.Time `json:"delivery_date,omitempty"`
	Currency         string    `json:"currency"`
	PaymentTerms     string    `json:"payment_terms,omitempty"`
	PaymentReference string    `json:"payment_reference,omitempty"`
	PurchaseOrderRef string    `json:"purchase_order_ref,omitempty"`
	Notes            []string  `json:"notes,omitempty"`

	Seller Party      `json:"seller"`
	Buyer  Party      `json:"buyer"`
	Items  []LineItem `json:"items"`

	// Totals (calculated)
	TaxBasisTotal decimal.Decimal `json:"tax_basis_total"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	DuePayable    decimal.Decimal `json:"due_payable"`
}

// CalculateTotals recomputes line nets, the per-rate tax subtotals and the
// document totals. Calling it twice yields the same result.
func (inv *Invoice) CalculateTotals() {
	for i := range inv.Items {
		inv.Items[i].Calculate()
	}

	basis := facdec.Zero
	for _, li := range inv.Items {
		basis = basis.Add(li.NetTotal)
	}

	tax := facdec.Zero
	for _, tb := range inv.TaxBreakdowns() {
		tax = tax.Add(tb.Amount)
	}

	inv.TaxBasisTotal = basis.Round(2)
	inv.TaxTotal = tax.Round(2)
	inv.GrandTotal = inv.TaxBasisTotal.Add(inv.TaxTotal)
	inv.DuePayable = inv.GrandTotal
}

// TaxBreakdowns groups line items by VAT rate and computes the VAT amount
// per group. Groups are ordered by ascending rate so output is stable.
func (inv *Invoice) TaxBreakdowns() []TaxBreakdown {
	groups := make(map[string]*TaxBreakdown)
	var keys []string

	for _, li := range inv.Items {
		key := li.VATRate.StringFixed(2)
		g, ok := groups[key]
		if !ok {
			g = &TaxBreakdown{Rate: li.VATRate, Basis: facdec.Zero}
			groups[key] = g
			keys = append(keys, key)
		}
		g.Basis = g.Basis.Add(li.NetTotal)
	}

	out := make([]TaxBreakdown, 0, len(keys))
	for _, key := range keys {
		g := groups[key]
		g.Basis = g.Basis.Round(2)
		g.Amount = facdec.CalculateVAT(g.Basis, g.Rate)
		out = append(out, *g)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Rate.LessThan(out[j].Rate)
	})
	return out
}

// Validate checks the invoice is structurally fit for encoding.
// All problems are reported, not just the first one.
func (inv *Invoice) Validate() error {
	var errs []error

	if inv.Number == "" {
		errs = append(errs, NewInputError("number", "invoice number is required"))
	}
	if inv.IssueDate.IsZero() {
		errs = append(errs, NewInputError("issue_date", "issue date is required"))
	}
	if !KnownCurrency(inv.Currency) {
		errs = append(errs, NewInputError("currency", fmt.Sprintf("unknown or inactive ISO 4217 code %q", inv.Currency)))
	}
	if inv.Seller.Name == "" {
		errs = append(errs, NewInputError("seller.name", "seller name is required"))
	}
	if inv.Buyer.Name == "" {
		errs = append(errs, NewInputError("buyer.name", "buyer name is required"))
	}
	if len(inv.Items) == 0 {
		errs = append(errs, NewInputError("items", "invoice must contain at least one line item"))
	}

	for i, li := range inv.Items {
		if li.Description == "" {
			errs = append(errs, NewInputError(fmt.Sprintf("items[%d].description", i), "description is required"))
		}
		if !facdec.IsPositive(li.Quantity) {
			errs = append(errs, NewInputError(fmt.Sprintf("items[%d].quantity", i), "quantity must be positive"))
		}
		if !facdec.IsNonNegative(li.UnitPrice) {
			errs = append(errs, NewInputError(fmt.Sprintf("items[%d].unit_price", i), "unit price must not be negative"))
		}
		if li.VATRate.IsNegative() {
			errs = append(errs, NewInputError(fmt.Sprintf("items[%d].vat_rate", i), "VAT rate must not be negative"))
		}
	}

	return errors.Join(errs...)
}

// TotalsConsistent reports whether the stored totals match a fresh
// computation within the given tolerance.
func (inv *Invoice) TotalsConsistent(tolerance decimal.Decimal) bool {
	cp := *inv
	cp.Items = make([]LineItem, len(inv.Items))
	copy(cp.Items, inv.Items)
	cp.CalculateTotals()

	within := func(a, b decimal.Decimal) bool {
		return a.Sub(b).Abs().LessThanOrEqual(tolerance)
	}
	return within(cp.TaxBasisTotal, inv.TaxBasisTotal) &&
		within(cp.TaxTotal, inv.TaxTotal) &&
		within(cp.GrandTotal, inv.GrandTotal) &&
		within(cp.DuePayable, inv.DuePayable)
}
