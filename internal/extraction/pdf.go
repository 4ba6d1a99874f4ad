package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/wudi/pdfkit/ir/raw"
	"github.com/wudi/pdfkit/parser"
)

// errNoPageTree indicates a parsed PDF whose catalog has no usable /Pages.
var errNoPageTree = errors.New("pdf has no page tree")

// CountPDFPages parses data and returns the page count from the document's
// page tree. When the root /Pages node carries no /Count the /Page objects
// are counted instead.
func CountPDFPages(ctx context.Context, data []byte) (int, error) {
	doc, err := parser.NewDocumentParser(parser.Config{}).Parse(ctx, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("parse pdf: %w", err)
	}

	pages, ok := pageTreeRoot(doc)
	if !ok {
		return 0, errNoPageTree
	}
	if count, ok := pages.Get(raw.NameLiteral("Count")); ok {
		if n, ok := resolve(doc, count).(raw.Number); ok && n.Int() > 0 {
			return int(n.Int()), nil
		}
	}

	n := 0
	for _, obj := range doc.Objects {
		if d, ok := obj.(raw.Dictionary); ok && nameOf(d, "Type") == "Page" {
			n++
		}
	}
	if n == 0 {
		return 0, errNoPageTree
	}
	return n, nil
}

// pageTreeRoot follows trailer /Root to the catalog's /Pages dictionary.
func pageTreeRoot(doc *raw.Document) (raw.Dictionary, bool) {
	trailer, ok := doc.Trailer.(*raw.DictObj)
	if !ok || trailer == nil {
		return nil, false
	}
	root, ok := trailer.Get(raw.NameLiteral("Root"))
	if !ok {
		return nil, false
	}
	catalog, ok := resolve(doc, root).(raw.Dictionary)
	if !ok {
		return nil, false
	}
	pages, ok := catalog.Get(raw.NameLiteral("Pages"))
	if !ok {
		return nil, false
	}
	tree, ok := resolve(doc, pages).(raw.Dictionary)
	return tree, ok
}

func resolve(doc *raw.Document, obj raw.Object) raw.Object {
	if ref, ok := obj.(raw.RefObj); ok {
		return doc.Objects[ref.R]
	}
	return obj
}

func nameOf(d raw.Dictionary, key string) string {
	v, ok := d.Get(raw.NameLiteral(key))
	if !ok {
		return ""
	}
	if n, ok := v.(raw.Name); ok {
		return n.Value()
	}
	return ""
}
