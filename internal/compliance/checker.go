// Package compliance verifies finished Factur-X artifacts: PDF/A
// identification, Factur-X metadata, the embedded XML and its profile
// conformance.
package compliance

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/rezonia/facturx/internal/model"
	"github.com/rezonia/facturx/internal/pdf"
	"github.com/rezonia/facturx/internal/validation"
)

// Check names, in evaluation order
const (
	CheckPDFReadable   = "pdf-readable"
	CheckPDFAIdent     = "pdfa-identification"
	CheckFxMetadata    = "facturx-metadata"
	CheckAttachment    = "attachment-present"
	CheckXMLWellFormed = "xml-well-formed"
	CheckXMPConsistent = "metadata-consistent"
	CheckXMLProfile    = "xml-profile-valid"
)

var checkOrder = []string{
	CheckPDFReadable,
	CheckPDFAIdent,
	CheckFxMetadata,
	CheckAttachment,
	CheckXMLWellFormed,
	CheckXMPConsistent,
	CheckXMLProfile,
}

// CheckResult is the outcome of a single compliance check
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Report is the outcome of checking one artifact
type Report struct {
	Profile   model.Profile `json:"profile"`
	Compliant bool          `json:"compliant"`
	Checks    []CheckResult `json:"checks"`

	// Validation holds the embedded XML's profile validation report
	// when the XML could be extracted
	Validation *validation.Report `json:"validation,omitempty"`
}

func (r *Report) add(name string, passed bool, detail string) {
	r.Checks = append(r.Checks, CheckResult{Name: name, Passed: passed, Detail: detail})
	if !passed {
		r.Compliant = false
	}
}

// skipRemaining marks every check after the given one as failed
// because its precondition did not hold.
func (r *Report) skipRemaining(after string, reason string) {
	seen := false
	for _, name := range checkOrder {
		if name == after {
			seen = true
			continue
		}
		if seen {
			r.add(name, false, "not evaluated: "+reason)
		}
	}
}

// Checker inspects Factur-X artifacts
type Checker struct {
	validator *validation.Validator
}

// NewChecker creates a checker with the standard validation rules
func NewChecker() *Checker {
	return &Checker{validator: validation.NewValidator()}
}

// Check runs all compliance checks against the artifact. Arbitrary
// input bytes produce a failed report, never a panic.
func (c *Checker) Check(pdfData []byte, profile model.Profile) (*Report, error) {
	if !profile.IsValid() {
		return nil, fmt.Errorf("unsupported profile %q", profile)
	}

	report := &Report{Profile: profile, Compliant: true}

	insp, err := pdf.Inspect(pdfData)
	if err != nil {
		report.add(CheckPDFReadable, false, err.Error())
		report.skipRemaining(CheckPDFReadable, "PDF could not be read")
		return report, nil
	}
	report.add(CheckPDFReadable, true, "")

	c.checkXMP(report, insp, profile)
	c.checkAttachment(report, insp)

	if insp.XML == nil {
		report.add(CheckXMLWellFormed, false, "no factur-x.xml attachment to inspect")
		report.skipRemaining(CheckXMLWellFormed, "attachment missing")
		return report, nil
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(insp.XML); err != nil {
		report.add(CheckXMLWellFormed, false, "attachment is not well-formed XML: "+err.Error())
		report.skipRemaining(CheckXMLWellFormed, "attachment unreadable")
		return report, nil
	}
	root := doc.Root()
	if root == nil || root.Tag != "CrossIndustryInvoice" {
		report.add(CheckXMLWellFormed, false, "attachment root element is not CrossIndustryInvoice")
		report.skipRemaining(CheckXMLWellFormed, "attachment is not a CII document")
		return report, nil
	}
	report.add(CheckXMLWellFormed, true, "")

	c.checkConsistency(report, insp, doc)

	vr, err := c.validator.Validate(insp.XML, profile)
	if err != nil {
		return nil, err
	}
	report.Validation = vr
	if vr.Valid {
		report.add(CheckXMLProfile, true, "")
	} else {
		report.add(CheckXMLProfile, false, fmt.Sprintf("%d profile rule(s) failed", len(vr.Failures())))
	}

	return report, nil
}

func (c *Checker) checkXMP(report *Report, insp *pdf.Inspection, profile model.Profile) {
	if insp.XMP == nil {
		report.add(CheckPDFAIdent, false, "document carries no XMP metadata")
		report.add(CheckFxMetadata, false, "document carries no XMP metadata")
		return
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(insp.XMP); err != nil {
		report.add(CheckPDFAIdent, false, "XMP metadata is not well-formed: "+err.Error())
		report.add(CheckFxMetadata, false, "XMP metadata is not well-formed")
		return
	}

	part := xmpValue(doc, "pdfaid", "part")
	conformance := xmpValue(doc, "pdfaid", "conformance")
	switch {
	case part != "3":
		report.add(CheckPDFAIdent, false, fmt.Sprintf("pdfaid:part is %q, want 3", part))
	case conformance != "B":
		report.add(CheckPDFAIdent, false, fmt.Sprintf("pdfaid:conformance is %q, want B", conformance))
	default:
		report.add(CheckPDFAIdent, true, "")
	}

	fileName := xmpValue(doc, "fx", "DocumentFileName")
	docType := xmpValue(doc, "fx", "DocumentType")
	level := xmpValue(doc, "fx", "ConformanceLevel")
	switch {
	case fileName != pdf.AttachmentName:
		report.add(CheckFxMetadata, false, fmt.Sprintf("fx:DocumentFileName is %q, want %s", fileName, pdf.AttachmentName))
	case docType != "INVOICE":
		report.add(CheckFxMetadata, false, fmt.Sprintf("fx:DocumentType is %q, want INVOICE", docType))
	case level != profile.ConformanceLevel():
		report.add(CheckFxMetadata, false, fmt.Sprintf("fx:ConformanceLevel is %q, want %q", level, profile.ConformanceLevel()))
	default:
		report.add(CheckFxMetadata, true, "")
	}
}

// checkConsistency cross-references the XMP metadata against the
// embedded XML: the document title must name the invoice number the
// XML actually carries.
func (c *Checker) checkConsistency(report *Report, insp *pdf.Inspection, xmlDoc *etree.Document) {
	if insp.XMP == nil {
		report.add(CheckXMPConsistent, false, "no XMP metadata to compare against the XML")
		return
	}

	xmpDoc := etree.NewDocument()
	if err := xmpDoc.ReadFromBytes(insp.XMP); err != nil {
		report.add(CheckXMPConsistent, false, "XMP metadata is not well-formed")
		return
	}

	idEl := xmlDoc.FindElement("//rsm:ExchangedDocument/ram:ID")
	if idEl == nil || idEl.Text() == "" {
		report.add(CheckXMPConsistent, false, "embedded XML carries no invoice number to compare")
		return
	}
	invoiceNumber := idEl.Text()

	titleEl := xmpDoc.FindElement("//dc:title//rdf:li")
	if titleEl == nil || titleEl.Text() == "" {
		report.add(CheckXMPConsistent, false, "XMP metadata carries no document title")
		return
	}
	if !strings.Contains(titleEl.Text(), invoiceNumber) {
		report.add(CheckXMPConsistent, false,
			fmt.Sprintf("XMP title %q does not reference invoice number %q", titleEl.Text(), invoiceNumber))
		return
	}

	report.add(CheckXMPConsistent, true, "")
}

func (c *Checker) checkAttachment(report *Report, insp *pdf.Inspection) {
	switch {
	case insp.NameTreeCount == 0:
		report.add(CheckAttachment, false, "factur-x.xml not found in EmbeddedFiles name tree")
	case insp.NameTreeCount > 1:
		report.add(CheckAttachment, false, fmt.Sprintf("factur-x.xml appears %d times in EmbeddedFiles name tree", insp.NameTreeCount))
	case insp.AFCount != 1:
		report.add(CheckAttachment, false, fmt.Sprintf("factur-x.xml has %d /AF entries, want 1", insp.AFCount))
	case !insp.AFRelationshipData:
		report.add(CheckAttachment, false, "filespec does not declare AFRelationship Data")
	default:
		report.add(CheckAttachment, true, "")
	}
}

// xmpValue reads an XMP property written either as an element or as an
// attribute on an rdf:Description.
func xmpValue(doc *etree.Document, space, name string) string {
	if el := doc.FindElement("//" + space + ":" + name); el != nil {
		return el.Text()
	}
	for _, desc := range doc.FindElements("//rdf:Description") {
		for _, attr := range desc.Attr {
			if attr.Space == space && attr.Key == name {
				return attr.Value
			}
		}
	}
	return ""
}
