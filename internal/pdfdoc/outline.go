package pdfdoc

import (
	"github.com/ledongthuc/pdf"
	log "github.com/sirupsen/logrus"

	"scribe/internal/models"
)

// Guards against malformed outline trees with cycles in First/Next links.
const (
	maxOutlineDepth = 64
	maxOutlineNodes = 8192
)

type outlineResolver struct {
	r         *pdf.Reader
	pageIndex map[string]int
	visited   int
}

// resolveOutline walks the document's native outline tree and resolves
// each entry's destination to a page number plus an optional vertical
// anchor. Failures are per-entry: a node that cannot be resolved falls
// back to page 1, top of page, and the walk continues.
func resolveOutline(r *pdf.Reader) (entries []models.OutlineEntry) {
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Warn("outline resolution aborted")
			entries = nil
		}
	}()

	outlines := r.Trailer().Key("Root").Key("Outlines")
	if outlines.IsNull() {
		return nil
	}
	res := &outlineResolver{r: r}
	return res.walk(outlines.Key("First"), 0)
}

func (res *outlineResolver) walk(node pdf.Value, depth int) []models.OutlineEntry {
	if depth > maxOutlineDepth {
		return nil
	}
	var out []models.OutlineEntry
	for ; !node.IsNull(); node = node.Key("Next") {
		res.visited++
		if res.visited > maxOutlineNodes {
			break
		}
		entry := res.resolveEntry(node)
		entry.Children = res.walk(node.Key("First"), depth+1)
		out = append(out, entry)
	}
	return out
}

func (res *outlineResolver) resolveEntry(node pdf.Value) (e models.OutlineEntry) {
	e = models.OutlineEntry{Title: node.Key("Title").Text(), PageNumber: 1}
	defer func() {
		if rec := recover(); rec != nil {
			log.WithFields(log.Fields{"title": e.Title, "panic": rec}).
				Debug("outline entry destination unreadable, using page 1")
			e.PageNumber = 1
			e.DestTop = nil
		}
	}()

	dest := res.destination(node)
	if dest.Kind() != pdf.Array || dest.Len() == 0 {
		return e
	}

	n, ok := res.pageNumber(dest.Index(0))
	if !ok {
		log.WithField("title", e.Title).Debug("outline destination page unresolved, using page 1")
		return e
	}
	e.PageNumber = n

	_, pageH := pageBox(res.r.Page(n).V)
	if top, ok := destTop(dest, pageH); ok {
		e.DestTop = &top
	}
	return e
}

// destination returns the entry's explicit destination array, following
// /Dest values, GoTo actions, and named destinations.
func (res *outlineResolver) destination(node pdf.Value) pdf.Value {
	d := node.Key("Dest")
	if d.IsNull() {
		if a := node.Key("A"); a.Key("S").Name() == "GoTo" {
			d = a.Key("D")
		}
	}
	switch d.Kind() {
	case pdf.Array:
		return d
	case pdf.Name:
		return res.named(d.Name())
	case pdf.String:
		return res.named(d.RawString())
	}
	return pdf.Value{}
}

func (res *outlineResolver) named(name string) pdf.Value {
	if name == "" {
		return pdf.Value{}
	}
	root := res.r.Trailer().Key("Root")

	if d := destValue(root.Key("Dests").Key(name)); d.Kind() == pdf.Array {
		return d
	}
	return destValue(lookupNameTree(root.Key("Names").Key("Dests"), name, 0))
}

// destValue unwraps named-destination records, which may be either the
// destination array itself or a dictionary holding it under /D.
func destValue(v pdf.Value) pdf.Value {
	if v.Kind() == pdf.Dict {
		return v.Key("D")
	}
	return v
}

func lookupNameTree(node pdf.Value, name string, depth int) pdf.Value {
	if node.IsNull() || depth > maxOutlineDepth {
		return pdf.Value{}
	}
	if names := node.Key("Names"); names.Kind() == pdf.Array {
		for i := 0; i+1 < names.Len(); i += 2 {
			if names.Index(i).RawString() == name {
				return names.Index(i + 1)
			}
		}
	}
	if kids := node.Key("Kids"); kids.Kind() == pdf.Array {
		for i := 0; i < kids.Len(); i++ {
			if v := lookupNameTree(kids.Index(i), name, depth+1); !v.IsNull() {
				return v
			}
		}
	}
	return pdf.Value{}
}

// pageNumber maps a destination's page reference to a 1-based page number.
// Page objects carry no exported identity, so the page tree is indexed by
// the textual form of each page dictionary.
func (res *outlineResolver) pageNumber(page pdf.Value) (int, bool) {
	// Remote-style destinations may address pages by 0-based index.
	if page.Kind() == pdf.Integer {
		n := int(page.Int64()) + 1
		if n >= 1 && n <= res.r.NumPage() {
			return n, true
		}
		return 0, false
	}
	if page.Kind() != pdf.Dict {
		return 0, false
	}
	if res.pageIndex == nil {
		res.pageIndex = make(map[string]int, res.r.NumPage())
		for i := 1; i <= res.r.NumPage(); i++ {
			res.pageIndex[res.r.Page(i).V.String()] = i
		}
	}
	n, ok := res.pageIndex[page.String()]
	return n, ok
}

// destTop extracts the destination's vertical anchor, if its positioning
// mode carries one, and converts it from PDF user space (origin at the
// bottom-left, Y up) to an offset from the top of the page:
//
//	[page /XYZ left top zoom]
//	[page /FitH top]   [page /FitBH top]
//	[page /FitR left bottom right top]
//
// Fit, FitV, FitB and FitBV address the whole page and yield no anchor.
func destTop(dest pdf.Value, pageHeight float64) (float64, bool) {
	var v pdf.Value
	switch dest.Index(1).Name() {
	case "XYZ":
		v = dest.Index(3)
	case "FitH", "FitBH":
		v = dest.Index(2)
	case "FitR":
		v = dest.Index(5)
	default:
		return 0, false
	}
	if k := v.Kind(); k != pdf.Integer && k != pdf.Real {
		return 0, false
	}
	return pageHeight - v.Float64(), true
}
