package selection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"scribe/internal/util"
)

func TestExtractNormalizesToPageFractions(t *testing.T) {
	sel, err := Extract(RawSelection{
		Text:         "some selected text",
		PageNumber:   3,
		PageOrigin:   Point{X: 100, Y: 50},
		PageWidthPx:  612,
		PageHeightPx: 792,
		LineRects: []ClientRect{
			{Left: 150, Top: 200, Width: 100, Height: 20},
			{Left: 120, Top: 222, Width: 300, Height: 20},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 3, sel.PageNumber)
	require.Len(t, sel.Rects, 2)

	require.InDelta(t, 50.0/612, sel.Rects[0].X, 1e-9)
	require.InDelta(t, 150.0/792, sel.Rects[0].Y, 1e-9)
	require.InDelta(t, 100.0/612, sel.Rects[0].Width, 1e-9)
	require.InDelta(t, 20.0/792, sel.Rects[0].Height, 1e-9)

	// toolbar anchor: top-center of the first line, client space
	require.InDelta(t, 200.0, sel.AnchorPosition.X, 1e-9)
	require.InDelta(t, 200.0, sel.AnchorPosition.Y, 1e-9)
}

func TestExtractFractionsInvariantUnderZoom(t *testing.T) {
	at1, err := Extract(RawSelection{
		Text:         "line",
		PageNumber:   1,
		PageOrigin:   Point{X: 100, Y: 50},
		PageWidthPx:  612,
		PageHeightPx: 792,
		LineRects:    []ClientRect{{Left: 150, Top: 200, Width: 100, Height: 20}},
	})
	require.NoError(t, err)

	// the same physical selection measured with the page rendered at 2x
	at2, err := Extract(RawSelection{
		Text:         "line",
		PageNumber:   1,
		PageOrigin:   Point{X: 100, Y: 50},
		PageWidthPx:  1224,
		PageHeightPx: 1584,
		LineRects:    []ClientRect{{Left: 200, Top: 350, Width: 200, Height: 40}},
	})
	require.NoError(t, err)

	require.InDelta(t, at1.Rects[0].X, at2.Rects[0].X, 1e-9)
	require.InDelta(t, at1.Rects[0].Y, at2.Rects[0].Y, 1e-9)
	require.InDelta(t, at1.Rects[0].Width, at2.Rects[0].Width, 1e-9)
	require.InDelta(t, at1.Rects[0].Height, at2.Rects[0].Height, 1e-9)
}

func TestExtractRejectsEmptySelection(t *testing.T) {
	_, err := Extract(RawSelection{
		Text:         "   \n ",
		PageNumber:   1,
		PageWidthPx:  612,
		PageHeightPx: 792,
		LineRects:    []ClientRect{{Left: 10, Top: 10, Width: 50, Height: 10}},
	})
	require.ErrorIs(t, err, util.ErrEmptySelection)

	_, err = Extract(RawSelection{
		Text:         "text without rects",
		PageNumber:   1,
		PageWidthPx:  612,
		PageHeightPx: 792,
	})
	require.ErrorIs(t, err, util.ErrEmptySelection)

	// collapsed rects only
	_, err = Extract(RawSelection{
		Text:         "collapsed",
		PageNumber:   1,
		PageWidthPx:  612,
		PageHeightPx: 792,
		LineRects:    []ClientRect{{Left: 10, Top: 10, Width: 0, Height: 0}},
	})
	require.ErrorIs(t, err, util.ErrEmptySelection)
}

func TestExtractRejectsUnlaidOutPage(t *testing.T) {
	_, err := Extract(RawSelection{
		Text:      "text",
		LineRects: []ClientRect{{Left: 10, Top: 10, Width: 50, Height: 10}},
	})
	require.ErrorIs(t, err, util.ErrPageNotLaidOut)
}

func TestExtractRejectsRectOutsidePage(t *testing.T) {
	_, err := Extract(RawSelection{
		Text:         "spills off the right edge",
		PageNumber:   1,
		PageOrigin:   Point{X: 0, Y: 0},
		PageWidthPx:  612,
		PageHeightPx: 792,
		LineRects:    []ClientRect{{Left: 600, Top: 10, Width: 50, Height: 10}},
	})
	require.ErrorIs(t, err, util.ErrOutsidePage)

	_, err = Extract(RawSelection{
		Text:         "starts left of the page",
		PageNumber:   1,
		PageOrigin:   Point{X: 100, Y: 0},
		PageWidthPx:  612,
		PageHeightPx: 792,
		LineRects:    []ClientRect{{Left: 50, Top: 10, Width: 40, Height: 10}},
	})
	require.ErrorIs(t, err, util.ErrOutsidePage)
}
