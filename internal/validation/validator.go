// Package validation checks CII XML documents against Factur-X profile
// requirements. Rules are evaluated with structured document queries;
// a document that merely mentions an element name in text cannot pass.
package validation

import (
	"fmt"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/rezonia/facturx/internal/cii"
	facdec "github.com/rezonia/facturx/internal/decimal"
	"github.com/rezonia/facturx/internal/model"
)

// rule is a single profile requirement. Tier is the weakest profile
// that demands it; higher profiles inherit every lower-tier rule.
type rule struct {
	id          string
	description string
	tier        model.Profile
	check       func(doc *etree.Document) (bool, string)
}

// Validator validates CII XML against a conformance profile
type Validator struct {
	rules []rule
}

// NewValidator creates a validator with the built-in rule set
func NewValidator() *Validator {
	v := &Validator{}
	v.registerMinimumRules()
	v.registerBasicWLRules()
	v.registerEN16931Rules()
	return v
}

// Validate evaluates every rule of the given profile and all weaker
// profiles. The report lists results in registration order.
func (v *Validator) Validate(data []byte, profile model.Profile) (*Report, error) {
	if !profile.IsValid() {
		return nil, fmt.Errorf("unsupported profile %q", profile)
	}

	report := &Report{Profile: profile, Valid: true}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		report.add("XML-PARSE", "document is well-formed XML", false, err.Error())
		return report, nil
	}
	if doc.Root() == nil {
		report.add("XML-PARSE", "document is well-formed XML", false, "no root element")
		return report, nil
	}
	report.add("XML-PARSE", "document is well-formed XML", true, "")

	for _, r := range v.rules {
		if !profile.Includes(r.tier) {
			continue
		}
		passed, detail := r.check(doc)
		report.add(r.id, r.description, passed, detail)
	}

	return report, nil
}

func (v *Validator) register(id, description string, tier model.Profile, check func(*etree.Document) (bool, string)) {
	v.rules = append(v.rules, rule{id: id, description: description, tier: tier, check: check})
}

func (v *Validator) registerMinimumRules() {
	v.register("MIN-ROOT", "root element is rsm:CrossIndustryInvoice", model.ProfileMinimum,
		func(doc *etree.Document) (bool, string) {
			root := doc.Root()
			if root.Space != "rsm" || root.Tag != "CrossIndustryInvoice" {
				return false, fmt.Sprintf("unexpected root element %s:%s", root.Space, root.Tag)
			}
			if ns := root.SelectAttrValue("xmlns:rsm", ""); ns != cii.NamespaceRSM {
				return false, fmt.Sprintf("rsm namespace is %q", ns)
			}
			return true, ""
		})

	v.register("MIN-GUIDELINE", "guideline context parameter is present", model.ProfileMinimum,
		requireText("//rsm:ExchangedDocumentContext/ram:GuidelineSpecifiedDocumentContextParameter/ram:ID"))

	v.register("MIN-DOC-ID", "invoice number is present", model.ProfileMinimum,
		requireText("//rsm:ExchangedDocument/ram:ID"))

	v.register("MIN-DOC-TYPE", "document type code is present", model.ProfileMinimum,
		requireText("//rsm:ExchangedDocument/ram:TypeCode"))

	v.register("MIN-ISSUE-DATE", "issue date is present", model.ProfileMinimum,
		requireText("//rsm:ExchangedDocument/ram:IssueDateTime/udt:DateTimeString"))

	v.register("MIN-SELLER-NAME", "seller name is present", model.ProfileMinimum,
		requireText("//ram:SellerTradeParty/ram:Name"))

	v.register("MIN-BUYER-NAME", "buyer name is present", model.ProfileMinimum,
		requireText("//ram:BuyerTradeParty/ram:Name"))

	v.register("MIN-CURRENCY", "invoice currency is a known ISO 4217 code", model.ProfileMinimum,
		func(doc *etree.Document) (bool, string) {
			el := doc.FindElement("//ram:ApplicableHeaderTradeSettlement/ram:InvoiceCurrencyCode")
			if el == nil || el.Text() == "" {
				return false, "InvoiceCurrencyCode missing or empty"
			}
			if !model.KnownCurrency(el.Text()) {
				return false, fmt.Sprintf("unknown currency code %q", el.Text())
			}
			return true, ""
		})

	v.register("MIN-GRAND-TOTAL", "grand total amount is present", model.ProfileMinimum,
		requireText("//ram:SpecifiedTradeSettlementHeaderMonetarySummation/ram:GrandTotalAmount"))
}

func (v *Validator) registerBasicWLRules() {
	v.register("BWL-SELLER-ADDRESS", "seller postal address with country is present", model.ProfileBasicWL,
		requireText("//ram:SellerTradeParty/ram:PostalTradeAddress/ram:CountryID"))

	v.register("BWL-BUYER-ADDRESS", "buyer postal address with country is present", model.ProfileBasicWL,
		requireText("//ram:BuyerTradeParty/ram:PostalTradeAddress/ram:CountryID"))

	v.register("BWL-PAYMENT-TERMS", "payment terms are present", model.ProfileBasicWL,
		requireElement("//ram:ApplicableHeaderTradeSettlement/ram:SpecifiedTradePaymentTerms"))

	v.register("BWL-LINE-ITEMS", "at least one trade line item is present", model.ProfileBasicWL,
		requireElement("//rsm:SupplyChainTradeTransaction/ram:IncludedSupplyChainTradeLineItem"))

	v.register("BWL-LINE-TOTAL", "line total amount is present in monetary summation", model.ProfileBasicWL,
		requireText("//ram:SpecifiedTradeSettlementHeaderMonetarySummation/ram:LineTotalAmount"))

	v.register("BWL-TAX-BASIS", "tax basis total amount is present", model.ProfileBasicWL,
		requireText("//ram:SpecifiedTradeSettlementHeaderMonetarySummation/ram:TaxBasisTotalAmount"))
}

func (v *Validator) registerEN16931Rules() {
	v.register("EN-SELLER-VAT", "seller VAT registration with scheme VA is present", model.ProfileEN16931,
		requireText("//ram:SellerTradeParty/ram:SpecifiedTaxRegistration/ram:ID[@schemeID='VA']"))

	v.register("EN-DUE-DATE", "payment due date is present", model.ProfileEN16931,
		requireText("//ram:SpecifiedTradePaymentTerms/ram:DueDateDateTime/udt:DateTimeString"))

	v.register("EN-TRADE-TAX", "header trade tax breakdown is present", model.ProfileEN16931,
		requireElement("//ram:ApplicableHeaderTradeSettlement/ram:ApplicableTradeTax"))

	v.register("EN-TAX-TOTAL", "tax total amount is present", model.ProfileEN16931,
		requireText("//ram:SpecifiedTradeSettlementHeaderMonetarySummation/ram:TaxTotalAmount"))

	v.register("EN-DATE-FORMAT", "date strings use format 102 (YYYYMMDD)", model.ProfileEN16931, checkDateFormats)

	v.register("EN-TOTALS-CONSISTENT", "monetary totals are arithmetically consistent", model.ProfileEN16931, checkTotals)
}

// requireText passes when the path matches an element with non-empty text
func requireText(path string) func(*etree.Document) (bool, string) {
	return func(doc *etree.Document) (bool, string) {
		el := doc.FindElement(path)
		if el == nil {
			return false, "element not found: " + path
		}
		if el.Text() == "" {
			return false, "element is empty: " + path
		}
		return true, ""
	}
}

// requireElement passes when the path matches at least one element
func requireElement(path string) func(*etree.Document) (bool, string) {
	return func(doc *etree.Document) (bool, string) {
		if doc.FindElement(path) == nil {
			return false, "element not found: " + path
		}
		return true, ""
	}
}

func checkDateFormats(doc *etree.Document) (bool, string) {
	els := doc.FindElements("//udt:DateTimeString")
	if len(els) == 0 {
		return false, "no date strings found"
	}
	for _, el := range els {
		if f := el.SelectAttrValue("format", ""); f != "102" {
			return false, fmt.Sprintf("date %q has format %q, want 102", el.Text(), f)
		}
		if _, err := time.Parse("20060102", el.Text()); err != nil {
			return false, fmt.Sprintf("date %q is not a valid YYYYMMDD value", el.Text())
		}
	}
	return true, ""
}

// checkTotals verifies line sums against the header summation within a
// one-cent tolerance.
func checkTotals(doc *etree.Document) (bool, string) {
	sum := doc.FindElement("//ram:SpecifiedTradeSettlementHeaderMonetarySummation")
	if sum == nil {
		return false, "monetary summation not found"
	}

	get := func(tag string) (decimal.Decimal, bool) {
		el := sum.FindElement("ram:" + tag)
		if el == nil {
			return facdec.Zero, false
		}
		d, err := facdec.FromString(el.Text())
		if err != nil {
			return facdec.Zero, false
		}
		return d, true
	}

	lineTotal, ok := get("LineTotalAmount")
	if !ok {
		return false, "LineTotalAmount missing or not numeric"
	}
	taxBasis, ok := get("TaxBasisTotalAmount")
	if !ok {
		return false, "TaxBasisTotalAmount missing or not numeric"
	}
	taxTotal, ok := get("TaxTotalAmount")
	if !ok {
		return false, "TaxTotalAmount missing or not numeric"
	}
	grand, ok := get("GrandTotalAmount")
	if !ok {
		return false, "GrandTotalAmount missing or not numeric"
	}

	lineSum := facdec.Zero
	for _, el := range doc.FindElements("//ram:IncludedSupplyChainTradeLineItem//ram:LineTotalAmount") {
		d, err := facdec.FromString(el.Text())
		if err != nil {
			return false, fmt.Sprintf("line total %q is not numeric", el.Text())
		}
		lineSum = lineSum.Add(d)
	}

	if !facdec.WithinTolerance(lineSum, lineTotal) {
		return false, fmt.Sprintf("line items sum to %s but LineTotalAmount is %s", facdec.Amount(lineSum), facdec.Amount(lineTotal))
	}
	if !facdec.WithinTolerance(taxBasis.Add(taxTotal), grand) {
		return false, fmt.Sprintf("basis %s + tax %s does not match grand total %s", facdec.Amount(taxBasis), facdec.Amount(taxTotal), facdec.Amount(grand))
	}
	return true, ""
}
