package pdfdoc

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"scribe/internal/util"
)

// fixturePDF assembles a minimal but well-formed PDF in memory. Objects
// must be added in numeric order; the xref table and trailer are derived
// from the recorded offsets.
type fixturePDF struct {
	buf     bytes.Buffer
	offsets []int
}

func (f *fixturePDF) obj(num int, body string) {
	if f.buf.Len() == 0 {
		f.buf.WriteString("%PDF-1.4\n")
	}
	f.offsets = append(f.offsets, f.buf.Len())
	fmt.Fprintf(&f.buf, "%d 0 obj\n%s\nendobj\n", num, body)
}

func (f *fixturePDF) bytes() []byte {
	xref := f.buf.Len()
	fmt.Fprintf(&f.buf, "xref\n0 %d\n", len(f.offsets)+1)
	f.buf.WriteString("0000000000 65535 f \n")
	for _, off := range f.offsets {
		fmt.Fprintf(&f.buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&f.buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(f.offsets)+1, xref)
	return f.buf.Bytes()
}

// Two pages: page 1 inherits the 612x792 box from the page tree node,
// page 2 carries its own 500x700 box. The outline exercises every
// destination form the resolver handles: an explicit /XYZ anchor, a
// sub-page /FitH anchor on a child entry, a whole-page /Fit, a named
// destination reached through a GoTo action, and a dangling page ref.
func buildViewerFixture() []byte {
	var f fixturePDF
	f.obj(1, `<< /Type /Catalog /Pages 2 0 R /Outlines 5 0 R /Dests 11 0 R >>`)
	f.obj(2, `<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 /MediaBox [0 0 612 792] >>`)
	f.obj(3, `<< /Type /Page /Parent 2 0 R >>`)
	f.obj(4, `<< /Type /Page /Parent 2 0 R /MediaBox [0 0 500 700] >>`)
	f.obj(5, `<< /Type /Outlines /First 6 0 R /Last 10 0 R >>`)
	f.obj(6, `<< /Title (Overview) /Parent 5 0 R /Next 8 0 R /First 7 0 R /Last 7 0 R /Dest [3 0 R /XYZ 0 200 0] >>`)
	f.obj(7, `<< /Title (Details) /Parent 6 0 R /Dest [4 0 R /FitH 300] >>`)
	f.obj(8, `<< /Title (Appendix) /Parent 5 0 R /Prev 6 0 R /Next 9 0 R /Dest [4 0 R /Fit] >>`)
	f.obj(9, `<< /Title (References) /Parent 5 0 R /Prev 8 0 R /Next 10 0 R /A << /S /GoTo /D /intro >> >>`)
	f.obj(10, `<< /Title (Missing) /Parent 5 0 R /Prev 9 0 R /Dest [12 0 R /XYZ 0 100 0] >>`)
	f.obj(11, `<< /intro [3 0 R /FitH 100] >>`)
	return f.bytes()
}

func openFixture(t *testing.T) *Document {
	t.Helper()
	data := buildViewerFixture()
	doc, err := OpenReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	t.Cleanup(func() { doc.Close() })
	return doc
}

func TestOpenReaderResolvesGeometry(t *testing.T) {
	doc := openFixture(t)

	require.Equal(t, 2, doc.PageCount())
	require.Equal(t, 612.0, doc.PageWidth())
	require.Equal(t, 792.0, doc.PageHeight())

	w, h, err := doc.PageSize(1)
	require.NoError(t, err)
	require.Equal(t, 612.0, w)
	require.Equal(t, 792.0, h)

	w, h, err = doc.PageSize(2)
	require.NoError(t, err)
	require.Equal(t, 500.0, w)
	require.Equal(t, 700.0, h)

	_, _, err = doc.PageSize(3)
	require.Error(t, err)
}

func TestOutlineAnchorsConvertToTopOffsets(t *testing.T) {
	doc := openFixture(t)
	entries := doc.Outline()
	require.Len(t, entries, 4)

	overview := entries[0]
	require.Equal(t, "Overview", overview.Title)
	require.Equal(t, 1, overview.PageNumber)
	require.NotNil(t, overview.DestTop)
	require.Equal(t, 592.0, *overview.DestTop)

	require.Len(t, overview.Children, 1)
	details := overview.Children[0]
	require.Equal(t, "Details", details.Title)
	require.Equal(t, 2, details.PageNumber)
	require.NotNil(t, details.DestTop)
	require.Equal(t, 400.0, *details.DestTop)

	appendix := entries[1]
	require.Equal(t, "Appendix", appendix.Title)
	require.Equal(t, 2, appendix.PageNumber)
	require.Nil(t, appendix.DestTop)
}

func TestOutlineResolvesNamedDestination(t *testing.T) {
	doc := openFixture(t)
	entries := doc.Outline()
	require.Len(t, entries, 4)

	refs := entries[2]
	require.Equal(t, "References", refs.Title)
	require.Equal(t, 1, refs.PageNumber)
	require.NotNil(t, refs.DestTop)
	require.Equal(t, 692.0, *refs.DestTop)
}

func TestOutlineFallsBackOnUnresolvableDestination(t *testing.T) {
	doc := openFixture(t)
	entries := doc.Outline()
	require.Len(t, entries, 4)

	missing := entries[3]
	require.Equal(t, "Missing", missing.Title)
	require.Equal(t, 1, missing.PageNumber)
	require.Nil(t, missing.DestTop)
}

func TestPageTextEmptyForContentlessPage(t *testing.T) {
	doc := openFixture(t)
	frags, err := doc.PageText(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, frags)
}

func TestOpenReaderRejectsMalformedFile(t *testing.T) {
	data := []byte("not a pdf at all, just prose")
	_, err := OpenReader(bytes.NewReader(data), int64(len(data)))
	require.Error(t, err)
	require.ErrorIs(t, err, util.ErrDocumentCorrupt)
}
