// Package pdf builds and manipulates the PDF side of a Factur-X
// artifact: the visual base document, PDF/A-3B conversion, XML
// attachment and XMP metadata.
package pdf

import (
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	facdec "github.com/rezonia/facturx/internal/decimal"
	"github.com/rezonia/facturx/internal/model"
)

var (
	colorAccent = &props.Color{Red: 20, Green: 60, Blue: 110}
	colorMuted  = &props.Color{Red: 110, Green: 110, Blue: 110}
)

// Composer renders the human-readable invoice page as a plain PDF.
// The result is not yet PDF/A; conversion happens downstream.
type Composer struct{}

// NewComposer creates a new PDF composer
func NewComposer() *Composer {
	return &Composer{}
}

// Compose renders the invoice and returns the PDF bytes.
// Totals are computed on a copy so the input stays untouched.
func (c *Composer) Compose(inv *model.Invoice) ([]byte, error) {
	if err := inv.Validate(); err != nil {
		return nil, err
	}

	cp := *inv
	cp.Items = make([]model.LineItem, len(inv.Items))
	copy(cp.Items, inv.Items)
	cp.CalculateTotals()

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(12).WithRightMargin(12).
		WithTopMargin(12).WithBottomMargin(12).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Invoice "+cp.Number, true).
		WithAuthor(cp.Seller.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(&cp))
	m.AddRows(line.NewRow(1, props.Line{Color: colorAccent, Thickness: 0.5}))
	m.AddRows(partiesRow(&cp))
	m.AddRows(line.NewRow(1, props.Line{Color: colorAccent, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range itemRows(cp.Items) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorAccent, Thickness: 0.3}))
	m.AddRows(totalsRow(&cp))

	for _, r := range footerRows(&cp) {
		m.AddRows(r)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("compose invoice pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

func headerRow(inv *model.Invoice) core.Row {
	issue := inv.IssueDate.Format("02.01.2006")

	cols := []core.Component{
		text.New("INVOICE", props.Text{
			Style: fontstyle.Bold, Size: 8, Align: align.Right,
			Color: colorAccent, Top: 1,
		}),
		text.New(inv.Number, props.Text{
			Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
		}),
		text.New("Issued: "+issue, props.Text{
			Size: 8, Align: align.Right, Top: 14, Color: colorMuted,
		}),
	}
	if !inv.DueDate.IsZero() {
		cols = append(cols, text.New("Due: "+inv.DueDate.Format("02.01.2006"), props.Text{
			Size: 8, Align: align.Right, Top: 19, Color: colorMuted,
		}))
	}

	return row.New(24).Add(
		col.New(7).Add(
			text.New(inv.Seller.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorAccent, Top: 1,
			}),
			text.New("VAT: "+nonEmpty(inv.Seller.VATID, "-"), props.Text{
				Size: 9, Top: 9, Color: colorMuted,
			}),
		),
		col.New(5).Add(cols...),
	)
}

func partiesRow(inv *model.Invoice) core.Row {
	return row.New(22).Add(
		col.New(6).Add(
			text.New("FROM", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorAccent, Top: 1,
			}),
			text.New(inv.Seller.Name, props.Text{Style: fontstyle.Bold, Size: 9, Top: 6}),
			text.New(addressLine(&inv.Seller), props.Text{Size: 8, Top: 11, Color: colorMuted}),
		),
		col.New(6).Add(
			text.New("TO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorAccent, Top: 1,
			}),
			text.New(inv.Buyer.Name, props.Text{Style: fontstyle.Bold, Size: 9, Top: 6}),
			text.New(addressLine(&inv.Buyer), props.Text{Size: 8, Top: 11, Color: colorMuted}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorAccent, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Description", 5, align.Left),
		h("Qty", 1, align.Center),
		h("Unit Price", 2, align.Right),
		h("VAT %", 1, align.Center),
		h("Amount", 3, align.Right),
	)
}

func itemRows(items []model.LineItem) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, li := range items {
		result = append(result, row.New(7).Add(
			col.New(5).Add(text.New(
				li.Description,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(1).Add(text.New(
				li.Quantity.String(),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(2).Add(text.New(
				facdec.Amount(li.UnitPrice),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(1).Add(text.New(
				li.VATRate.StringFixed(0)+"%",
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(3).Add(text.New(
				facdec.Amount(li.NetTotal),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

func totalsRow(inv *model.Invoice) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}

	cur := " " + inv.Currency
	return row.New(26).Add(
		col.New(4),
		col.New(4).Add(
			label("Net total:"),
			label("VAT:"),
			text.New("TOTAL DUE:", props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right,
				Color: colorAccent, Right: 2, Top: 12,
			}),
		),
		col.New(4).Add(
			value(facdec.Amount(inv.TaxBasisTotal)+cur),
			value(facdec.Amount(inv.TaxTotal)+cur),
			text.New(facdec.Amount(inv.GrandTotal)+cur, props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right,
				Color: colorAccent, Right: 1, Top: 12,
			}),
		),
	)
}

func footerRows(inv *model.Invoice) []core.Row {
	var rows []core.Row

	if inv.PaymentTerms != "" {
		rows = append(rows, row.New(8).Add(col.New(12).Add(
			text.New("Payment terms: "+inv.PaymentTerms, props.Text{
				Size: 8, Color: colorMuted, Top: 2,
			}),
		)))
	}
	for _, note := range inv.Notes {
		rows = append(rows, row.New(6).Add(col.New(12).Add(
			text.New(note, props.Text{Size: 7.5, Color: colorMuted, Top: 1}),
		)))
	}

	return rows
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func addressLine(p *model.Party) string {
	locality := strings.TrimSpace(p.PostCode + " " + p.City)
	var parts []string
	for _, s := range []string{p.AddressLine, locality, p.CountryCode} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
