package pdf

import (
	"bytes"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/rezonia/facturx/internal/model"
)

// Inspection summarizes the Factur-X plumbing of a PDF: how the
// invoice XML is registered and what metadata the document carries.
type Inspection struct {
	// NameTreeCount is the number of EmbeddedFiles entries named factur-x.xml
	NameTreeCount int
	// AFCount is the number of /AF entries whose filespec is factur-x.xml
	AFCount int
	// AFRelationshipData is true when the filespec declares AFRelationship Data
	AFRelationshipData bool
	// XML holds the extracted attachment content, nil when absent
	XML []byte
	// XMP holds the raw document metadata stream, nil when absent
	XMP []byte
}

// Inspect reads a PDF and reports its Factur-X structure. It never
// modifies the input.
func Inspect(pdfData []byte) (*Inspection, error) {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(pdfData), conf)
	if err != nil {
		return nil, model.NewToolError("pdfcpu", "failed to read PDF", err)
	}
	xref := ctx.XRefTable

	rootDict, err := xref.Catalog()
	if err != nil {
		return nil, model.NewToolError("pdfcpu", "failed to access document catalog", err)
	}

	insp := &Inspection{}

	entries, err := embeddedFileEntries(xref, rootDict)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.Name != AttachmentName {
			continue
		}
		insp.NameTreeCount++
		if insp.XML == nil {
			insp.XML = extractEmbeddedStream(xref, entry.Filespec)
		}
		if rel, ok := entry.Filespec.Find("AFRelationship"); ok {
			if name, ok := rel.(types.Name); ok && name.Value() == "Data" {
				insp.AFRelationshipData = true
			}
		}
	}

	if afObj, ok := rootDict.Find("AF"); ok {
		if af, err := xref.DereferenceArray(afObj); err == nil {
			for _, entry := range af {
				d, err := xref.DereferenceDict(entry)
				if err != nil || d == nil {
					continue
				}
				if filespecName(d) == AttachmentName {
					insp.AFCount++
				}
			}
		}
	}

	if metaObj, ok := rootDict.Find("Metadata"); ok {
		if sd, _, err := xref.DereferenceStreamDict(metaObj); err == nil && sd != nil {
			if err := sd.Decode(); err == nil {
				insp.XMP = sd.Content
			}
		}
	}

	return insp, nil
}

// extractEmbeddedStream pulls the decoded content of a filespec's
// embedded file stream, nil when anything is off.
func extractEmbeddedStream(xref *pdfmodel.XRefTable, filespec types.Dict) []byte {
	efObj, ok := filespec.Find("EF")
	if !ok {
		return nil
	}
	efDict, err := xref.DereferenceDict(efObj)
	if err != nil || efDict == nil {
		return nil
	}
	fObj, ok := efDict.Find("F")
	if !ok {
		return nil
	}
	sd, _, err := xref.DereferenceStreamDict(fObj)
	if err != nil || sd == nil {
		return nil
	}
	if err := sd.Decode(); err != nil {
		return nil
	}
	return sd.Content
}
