package overlay

import (
	"testing"

	"github.com/stretchr/testify/require"

	"scribe/internal/models"
)

func TestLayoutScalesFractionsToPixels(t *testing.T) {
	highlights := []models.Highlight{
		{
			HighlightID: "h1",
			PageNumber:  2,
			Color:       "#abcdef",
			Rects: []models.Rect{
				{X: 0.1, Y: 0.25, Width: 0.5, Height: 0.025},
				{X: 0.1, Y: 0.275, Width: 0.3, Height: 0.025},
			},
		},
		{HighlightID: "h2", PageNumber: 3, Rects: []models.Rect{{X: 0, Y: 0, Width: 1, Height: 1}}},
	}

	boxes := Layout(highlights, 2, 1224, 1584)
	require.Len(t, boxes, 2)
	require.Equal(t, "h1", boxes[0].HighlightID)
	require.Equal(t, "#abcdef", boxes[0].Color)
	require.InDelta(t, 122.4, boxes[0].X, 0.01)
	require.InDelta(t, 396.0, boxes[0].Y, 0.01)
	require.InDelta(t, 612.0, boxes[0].Width, 0.01)
	require.InDelta(t, 39.6, boxes[0].Height, 0.01)
}

func TestLayoutDefaultsColor(t *testing.T) {
	boxes := Layout([]models.Highlight{
		{HighlightID: "h1", PageNumber: 1, Rects: []models.Rect{{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.05}}},
	}, 1, 612, 792)
	require.Len(t, boxes, 1)
	require.Equal(t, DefaultColor, boxes[0].Color)
}

func TestLayoutEmptyWithoutDimensions(t *testing.T) {
	highlights := []models.Highlight{
		{HighlightID: "h1", PageNumber: 1, Rects: []models.Rect{{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.05}}},
	}
	require.Nil(t, Layout(highlights, 1, 0, 792))
	require.Nil(t, Layout(highlights, 1, 612, 0))
}

func TestHitTestReturnsTopmost(t *testing.T) {
	boxes := []Box{
		{HighlightID: "under", X: 100, Y: 100, Width: 200, Height: 50},
		{HighlightID: "over", X: 150, Y: 110, Width: 100, Height: 30},
	}

	hit, ok := HitTest(boxes, 160, 120)
	require.True(t, ok)
	require.Equal(t, "over", hit.HighlightID)

	hit, ok = HitTest(boxes, 110, 105)
	require.True(t, ok)
	require.Equal(t, "under", hit.HighlightID)

	_, ok = HitTest(boxes, 500, 500)
	require.False(t, ok)
}
