// Package cii encodes invoices as UN/CEFACT Cross-Industry Invoice XML
// in the layout required by Factur-X / ZUGFeRD.
package cii

import (
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	facdec "github.com/rezonia/facturx/internal/decimal"
	"github.com/rezonia/facturx/internal/model"
)

// CII namespace URIs
const (
	NamespaceRSM = "urn:un:unece:uncefact:data:standard:CrossIndustryInvoice:100"
	NamespaceRAM = "urn:un:unece:uncefact:data:standard:ReusableAggregateBusinessInformationEntity:100"
	NamespaceUDT = "urn:un:unece:uncefact:data:standard:UnqualifiedDataType:100"
)

// dateFormat102 is the UNTDID 2379 qualifier for YYYYMMDD date strings
const dateFormat102 = "102"

// Encoder builds CII XML documents. Output is deterministic: the same
// invoice and profile always produce byte-identical XML.
type Encoder struct{}

// NewEncoder creates a new CII encoder
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode renders the invoice as Factur-X CII XML for the given profile.
// The input is not mutated; totals are recomputed on a copy.
func (e *Encoder) Encode(inv *model.Invoice, profile model.Profile) ([]byte, error) {
	if !profile.IsValid() {
		return nil, model.NewEncodingError("profile", "unsupported profile "+string(profile), nil)
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}

	cp := *inv
	cp.Items = make([]model.LineItem, len(inv.Items))
	copy(cp.Items, inv.Items)
	cp.CalculateTotals()

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("rsm:CrossIndustryInvoice")
	root.CreateAttr("xmlns:rsm", NamespaceRSM)
	root.CreateAttr("xmlns:ram", NamespaceRAM)
	root.CreateAttr("xmlns:udt", NamespaceUDT)

	writeDocumentContext(root, profile)
	writeExchangedDocument(root, &cp)

	tx := root.CreateElement("rsm:SupplyChainTradeTransaction")
	for i := range cp.Items {
		writeLineItem(tx, &cp.Items[i])
	}
	writeTradeAgreement(tx, &cp)
	writeTradeDelivery(tx, &cp)
	writeTradeSettlement(tx, &cp)

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, model.NewEncodingError("document", "failed to serialize XML", err)
	}
	return out, nil
}

func writeDocumentContext(root *etree.Element, profile model.Profile) {
	dctx := root.CreateElement("rsm:ExchangedDocumentContext")
	param := dctx.CreateElement("ram:GuidelineSpecifiedDocumentContextParameter")
	text(param, "ram:ID", profile.GuidelineID())
}

func writeExchangedDocument(root *etree.Element, inv *model.Invoice) {
	doc := root.CreateElement("rsm:ExchangedDocument")
	text(doc, "ram:ID", inv.Number)
	text(doc, "ram:TypeCode", model.InvoiceTypeCode)
	date102(doc, "ram:IssueDateTime", inv.IssueDate)
	for _, note := range inv.Notes {
		n := doc.CreateElement("ram:IncludedNote")
		text(n, "ram:Content", note)
	}
}

// writeLineItem emits one IncludedSupplyChainTradeLineItem. The internal
// order is fixed: line document, product, agreement, delivery, settlement.
func writeLineItem(tx *etree.Element, li *model.LineItem) {
	line := tx.CreateElement("ram:IncludedSupplyChainTradeLineItem")

	lineDoc := line.CreateElement("ram:AssociatedDocumentLineDocument")
	text(lineDoc, "ram:LineID", li.ID)

	product := line.CreateElement("ram:SpecifiedTradeProduct")
	if li.SellerAssignedID != "" {
		text(product, "ram:SellerAssignedID", li.SellerAssignedID)
	}
	text(product, "ram:Name", li.Description)

	agreement := line.CreateElement("ram:SpecifiedLineTradeAgreement")
	price := agreement.CreateElement("ram:NetPriceProductTradePrice")
	amount(price, "ram:ChargeAmount", li.UnitPrice)

	delivery := line.CreateElement("ram:SpecifiedLineTradeDelivery")
	qty := text(delivery, "ram:BilledQuantity", li.Quantity.String())
	qty.CreateAttr("unitCode", li.EffectiveUnitCode())

	settlement := line.CreateElement("ram:SpecifiedLineTradeSettlement")
	tax := settlement.CreateElement("ram:ApplicableTradeTax")
	text(tax, "ram:TypeCode", "VAT")
	text(tax, "ram:CategoryCode", "S")
	text(tax, "ram:RateApplicablePercent", li.VATRate.StringFixed(2))
	sum := settlement.CreateElement("ram:SpecifiedTradeSettlementLineMonetarySummation")
	amount(sum, "ram:LineTotalAmount", li.NetTotal)
}

func writeTradeAgreement(tx *etree.Element, inv *model.Invoice) {
	agreement := tx.CreateElement("ram:ApplicableHeaderTradeAgreement")
	writeParty(agreement, "ram:SellerTradeParty", &inv.Seller)
	writeParty(agreement, "ram:BuyerTradeParty", &inv.Buyer)
	if inv.PurchaseOrderRef != "" {
		ref := agreement.CreateElement("ram:BuyerOrderReferencedDocument")
		text(ref, "ram:IssuerAssignedID", inv.PurchaseOrderRef)
	}
}

func writeParty(parent *etree.Element, tag string, p *model.Party) {
	party := parent.CreateElement(tag)
	text(party, "ram:Name", p.Name)

	if p.AddressLine != "" || p.City != "" || p.PostCode != "" || p.CountryCode != "" {
		addr := party.CreateElement("ram:PostalTradeAddress")
		if p.PostCode != "" {
			text(addr, "ram:PostcodeCode", p.PostCode)
		}
		if p.AddressLine != "" {
			text(addr, "ram:LineOne", p.AddressLine)
		}
		if p.City != "" {
			text(addr, "ram:CityName", p.City)
		}
		if p.CountryCode != "" {
			text(addr, "ram:CountryID", p.CountryCode)
		}
	}

	if p.VATID != "" {
		reg := party.CreateElement("ram:SpecifiedTaxRegistration")
		id := text(reg, "ram:ID", p.VATID)
		id.CreateAttr("schemeID", "VA")
	}
}

func writeTradeDelivery(tx *etree.Element, inv *model.Invoice) {
	delivery := tx.CreateElement("ram:ApplicableHeaderTradeDelivery")
	if !inv.DeliveryDate.IsZero() {
		event := delivery.CreateElement("ram:ActualDeliverySupplyChainEvent")
		date102(event, "ram:OccurrenceDateTime", inv.DeliveryDate)
	}
}

func writeTradeSettlement(tx *etree.Element, inv *model.Invoice) {
	settlement := tx.CreateElement("ram:ApplicableHeaderTradeSettlement")

	if inv.PaymentReference != "" {
		text(settlement, "ram:PaymentReference", inv.PaymentReference)
	}
	text(settlement, "ram:InvoiceCurrencyCode", inv.Currency)

	for _, tb := range inv.TaxBreakdowns() {
		tax := settlement.CreateElement("ram:ApplicableTradeTax")
		amount(tax, "ram:CalculatedAmount", tb.Amount)
		text(tax, "ram:TypeCode", "VAT")
		amount(tax, "ram:BasisAmount", tb.Basis)
		text(tax, "ram:CategoryCode", "S")
		text(tax, "ram:RateApplicablePercent", tb.Rate.StringFixed(2))
	}

	if inv.PaymentTerms != "" || !inv.DueDate.IsZero() {
		terms := settlement.CreateElement("ram:SpecifiedTradePaymentTerms")
		if inv.PaymentTerms != "" {
			text(terms, "ram:Description", inv.PaymentTerms)
		}
		if !inv.DueDate.IsZero() {
			date102(terms, "ram:DueDateDateTime", inv.DueDate)
		}
	}

	sum := settlement.CreateElement("ram:SpecifiedTradeSettlementHeaderMonetarySummation")
	amount(sum, "ram:LineTotalAmount", inv.TaxBasisTotal)
	amount(sum, "ram:TaxBasisTotalAmount", inv.TaxBasisTotal)
	taxTotal := amount(sum, "ram:TaxTotalAmount", inv.TaxTotal)
	taxTotal.CreateAttr("currencyID", inv.Currency)
	amount(sum, "ram:GrandTotalAmount", inv.GrandTotal)
	amount(sum, "ram:DuePayableAmount", inv.DuePayable)
}

func text(parent *etree.Element, tag, value string) *etree.Element {
	el := parent.CreateElement(tag)
	el.SetText(value)
	return el
}

func amount(parent *etree.Element, tag string, v decimal.Decimal) *etree.Element {
	return text(parent, tag, facdec.Amount(v))
}

func date102(parent *etree.Element, tag string, t time.Time) {
	el := parent.CreateElement(tag)
	ds := el.CreateElement("udt:DateTimeString")
	ds.CreateAttr("format", dateFormat102)
	ds.SetText(t.Format("20060102"))
}
