package pdf

import (
	"bytes"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/rezonia/facturx/internal/model"
)

// AttachmentName is the file name Factur-X mandates for the embedded
// invoice XML. Readers look it up verbatim.
const AttachmentName = "factur-x.xml"

// attachmentDesc is the Desc written into the filespec dictionary
const attachmentDesc = "Factur-X invoice data"

// Embedder attaches invoice XML to a PDF the way Factur-X requires:
// as an embedded file named factur-x.xml with AFRelationship Data,
// registered in both the EmbeddedFiles name tree and the /AF array.
type Embedder struct {
	conf *pdfmodel.Configuration
}

// NewEmbedder creates a new embedder
func NewEmbedder() *Embedder {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return &Embedder{conf: conf}
}

// Embed attaches xmlData to pdfData and returns the new PDF bytes.
// Re-embedding replaces an existing factur-x.xml attachment, so the
// result always carries exactly one copy.
func (e *Embedder) Embed(pdfData, xmlData []byte) ([]byte, error) {
	ctx, err := api.ReadContext(bytes.NewReader(pdfData), e.conf)
	if err != nil {
		return nil, model.NewToolError("pdfcpu", "failed to read PDF", err)
	}

	// Drop a previously embedded copy before attaching the new one
	if attachments, listErr := ctx.ListAttachments(); listErr == nil {
		for _, a := range attachments {
			if a.ID == AttachmentName || a.FileName == AttachmentName {
				if _, err := ctx.RemoveAttachments([]string{a.ID}); err != nil {
					return nil, model.NewToolError("pdfcpu", "failed to replace existing attachment", err)
				}
				break
			}
		}
	}

	now := time.Now()
	attachment := pdfmodel.Attachment{
		Reader:   bytes.NewReader(xmlData),
		ID:       AttachmentName,
		FileName: AttachmentName,
		Desc:     attachmentDesc,
		ModTime:  &now,
	}
	if err := ctx.AddAttachment(attachment, false); err != nil {
		return nil, model.NewToolError("pdfcpu", "failed to embed attachment", err)
	}

	if err := e.decorateFilespec(ctx); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, model.NewToolError("pdfcpu", "failed to write PDF", err)
	}
	return buf.Bytes(), nil
}

// decorateFilespec upgrades the plain attachment written by pdfcpu to
// a Factur-X associated file: AFRelationship on the filespec, the XML
// subtype on the embedded stream and a catalog /AF entry.
func (e *Embedder) decorateFilespec(ctx *pdfmodel.Context) error {
	xref := ctx.XRefTable

	rootDict, err := xref.Catalog()
	if err != nil {
		return model.NewToolError("pdfcpu", "failed to access document catalog", err)
	}

	entries, err := embeddedFileEntries(xref, rootDict)
	if err != nil {
		return err
	}

	var facturx *embeddedFileEntry
	for i := range entries {
		if entries[i].Name == AttachmentName {
			facturx = &entries[i]
			break
		}
	}
	if facturx == nil {
		return model.NewToolError("pdfcpu", "embedded attachment not found in name tree", nil)
	}

	facturx.Filespec["AFRelationship"] = types.Name("Data")

	// Mark the embedded stream as XML
	if efObj, ok := facturx.Filespec.Find("EF"); ok {
		efDict, err := xref.DereferenceDict(efObj)
		if err == nil && efDict != nil {
			if fObj, ok := efDict.Find("F"); ok {
				if sd, _, err := xref.DereferenceStreamDict(fObj); err == nil && sd != nil {
					sd.Dict["Subtype"] = types.Name("application/xml")
				}
			}
		}
	}

	// Rebuild /AF so the invoice filespec appears exactly once,
	// preserving unrelated associated files.
	newAF := types.Array{}
	if afObj, ok := rootDict.Find("AF"); ok {
		af, err := xref.DereferenceArray(afObj)
		if err != nil {
			return model.NewToolError("pdfcpu", "failed to read /AF array", err)
		}
		for _, entry := range af {
			d, err := xref.DereferenceDict(entry)
			if err != nil || d == nil {
				continue
			}
			if filespecName(d) == AttachmentName {
				continue
			}
			newAF = append(newAF, entry)
		}
	}
	newAF = append(newAF, facturx.Ref)
	rootDict["AF"] = newAF

	return nil
}

// embeddedFileEntry is one EmbeddedFiles name tree leaf
type embeddedFileEntry struct {
	Name     string
	Ref      types.IndirectRef
	Filespec types.Dict
}

// embeddedFileEntries walks the EmbeddedFiles name tree and returns
// every entry with its resolved filespec dictionary.
func embeddedFileEntries(xref *pdfmodel.XRefTable, rootDict types.Dict) ([]embeddedFileEntry, error) {
	namesObj, ok := rootDict.Find("Names")
	if !ok {
		return nil, nil
	}
	namesDict, err := xref.DereferenceDict(namesObj)
	if err != nil || namesDict == nil {
		return nil, nil
	}
	efObj, ok := namesDict.Find("EmbeddedFiles")
	if !ok {
		return nil, nil
	}
	efDict, err := xref.DereferenceDict(efObj)
	if err != nil || efDict == nil {
		return nil, nil
	}

	var entries []embeddedFileEntry
	if err := walkNameTree(xref, efDict, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func walkNameTree(xref *pdfmodel.XRefTable, node types.Dict, entries *[]embeddedFileEntry) error {
	if kidsObj, ok := node.Find("Kids"); ok {
		kids, err := xref.DereferenceArray(kidsObj)
		if err != nil {
			return model.NewToolError("pdfcpu", "failed to read name tree kids", err)
		}
		for _, kid := range kids {
			kidDict, err := xref.DereferenceDict(kid)
			if err != nil || kidDict == nil {
				continue
			}
			if err := walkNameTree(xref, kidDict, entries); err != nil {
				return err
			}
		}
		return nil
	}

	namesObj, ok := node.Find("Names")
	if !ok {
		return nil
	}
	names, err := xref.DereferenceArray(namesObj)
	if err != nil {
		return model.NewToolError("pdfcpu", "failed to read name tree leaf", err)
	}

	for i := 0; i+1 < len(names); i += 2 {
		name, err := stringValue(xref, names[i])
		if err != nil {
			continue
		}
		ref, ok := names[i+1].(types.IndirectRef)
		if !ok {
			continue
		}
		fs, err := xref.DereferenceDict(ref)
		if err != nil || fs == nil {
			continue
		}
		*entries = append(*entries, embeddedFileEntry{Name: name, Ref: ref, Filespec: fs})
	}
	return nil
}

// filespecName resolves the attachment name of a filespec dict,
// preferring the unicode variant.
func filespecName(d types.Dict) string {
	for _, key := range []string{"UF", "F"} {
		if obj, ok := d.Find(key); ok {
			switch v := obj.(type) {
			case types.StringLiteral:
				if s, err := types.StringLiteralToString(v); err == nil {
					return s
				}
			case types.HexLiteral:
				if s, err := types.HexLiteralToString(v); err == nil {
					return s
				}
			}
		}
	}
	return ""
}

func stringValue(xref *pdfmodel.XRefTable, obj types.Object) (string, error) {
	resolved, err := xref.Dereference(obj)
	if err != nil {
		return "", err
	}
	switch v := resolved.(type) {
	case types.StringLiteral:
		return types.StringLiteralToString(v)
	case types.HexLiteral:
		return types.HexLiteralToString(v)
	}
	return "", model.NewToolError("pdfcpu", "unexpected name tree key type", nil)
}
