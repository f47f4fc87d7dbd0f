package pdfdoc

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"scribe/internal/models"
	"scribe/internal/util"

	"github.com/ledongthuc/pdf"
)

// Default US Letter dimensions, used when a page carries no usable MediaBox.
const (
	defaultPageWidth  = 612
	defaultPageHeight = 792
)

// Document is a handle to an opened PDF and its decoder resources. It is
// owned by exactly one viewer session; Close releases the underlying file
// and must be called on every exit path.
type Document struct {
	file    *os.File
	reader  *pdf.Reader
	pages   int
	width   float64
	height  float64
	outline []models.OutlineEntry
}

// Open opens the document at path and resolves its page geometry and
// navigation outline. A parse failure is terminal for the viewing session
// and is reported as util.ErrDocumentCorrupt.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat document: %w", err)
	}
	d, err := fromReaderAt(f, st.Size())
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	d.file = f
	return d, nil
}

// OpenReader opens a document from an in-memory or otherwise already-open
// blob. The caller keeps ownership of r.
func OpenReader(r io.ReaderAt, size int64) (*Document, error) {
	return fromReaderAt(r, size)
}

func fromReaderAt(r io.ReaderAt, size int64) (d *Document, err error) {
	// The underlying parser panics on some malformed inputs; a corrupt
	// document must surface as an error, not a crash.
	defer func() {
		if rec := recover(); rec != nil {
			d = nil
			err = fmt.Errorf("parse document: %v: %w", rec, util.ErrDocumentCorrupt)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("parse document: %v: %w", err, util.ErrDocumentCorrupt)
	}
	d = &Document{reader: reader, pages: reader.NumPage()}
	if d.pages < 1 {
		return nil, fmt.Errorf("document has no pages: %w", util.ErrDocumentCorrupt)
	}

	// Page 1 at unit scale is the canonical layout unit for placeholders.
	d.width, d.height = pageBox(reader.Page(1).V)
	d.outline = resolveOutline(reader)
	return d, nil
}

// Close releases the decoder resources. It is safe to call more than once.
func (d *Document) Close() error {
	if d.file == nil {
		return nil
	}
	f := d.file
	d.file = nil
	return f.Close()
}

func (d *Document) PageCount() int { return d.pages }
func (d *Document) PageWidth() float64 { return d.width }
func (d *Document) PageHeight() float64 { return d.height }

// Outline returns the resolved navigation tree. Built once at open time;
// callers must not mutate it.
func (d *Document) Outline() []models.OutlineEntry { return d.outline }

// PageSize returns the intrinsic unit-scale dimensions of one page.
func (d *Document) PageSize(page int) (w, h float64, err error) {
	if page < 1 || page > d.pages {
		return 0, 0, fmt.Errorf("page %d out of range 1..%d", page, d.pages)
	}
	w, h = pageBox(d.reader.Page(page).V)
	return w, h, nil
}

// TextFragment is one positioned run of page text at unit scale, with the
// origin at the top-left of the page.
type TextFragment struct {
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Font     string  `json:"font,omitempty"`
	FontSize float64 `json:"font_size"`
}

// PageText extracts the positioned text content of one page. PDF user
// space has its origin at the bottom-left with Y increasing upward; the
// returned fragments use viewer space (top-left origin). The fragment box
// is approximated from the baseline and font size.
func (d *Document) PageText(ctx context.Context, page int) (frags []TextFragment, err error) {
	if page < 1 || page > d.pages {
		return nil, fmt.Errorf("page %d out of range 1..%d", page, d.pages)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if rec := recover(); rec != nil {
			frags = nil
			err = fmt.Errorf("extract page %d text: %v", page, rec)
		}
	}()

	p := d.reader.Page(page)
	_, pageH := pageBox(p.V)
	content := p.Content()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frags = make([]TextFragment, 0, len(content.Text))
	for _, t := range content.Text {
		if t.S == "" {
			continue
		}
		frags = append(frags, TextFragment{
			Text:     t.S,
			X:        t.X,
			Y:        pageH - t.Y - t.FontSize,
			Width:    t.W,
			Height:   t.FontSize,
			Font:     t.Font,
			FontSize: t.FontSize,
		})
	}
	return frags, nil
}

// pageBox reads the page's MediaBox, honoring attributes inherited from
// ancestor page-tree nodes.
func pageBox(v pdf.Value) (w, h float64) {
	box := inheritedAttr(v, "MediaBox")
	if box.Kind() != pdf.Array || box.Len() < 4 {
		return defaultPageWidth, defaultPageHeight
	}
	x0 := box.Index(0).Float64()
	y0 := box.Index(1).Float64()
	x1 := box.Index(2).Float64()
	y1 := box.Index(3).Float64()
	w = math.Abs(x1 - x0)
	h = math.Abs(y1 - y0)
	if w <= 0 || h <= 0 {
		return defaultPageWidth, defaultPageHeight
	}
	return w, h
}

func inheritedAttr(v pdf.Value, key string) pdf.Value {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		if attr := v.Key(key); !attr.IsNull() {
			return attr
		}
		v = v.Key("Parent")
	}
	return pdf.Value{}
}
