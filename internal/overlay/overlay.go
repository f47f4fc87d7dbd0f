// Package overlay projects persisted highlights onto a rendered page's
// pixel grid and resolves clicks back to highlight identities.
package overlay

import (
	"scribe/internal/models"
)

const DefaultColor = "#ffec99"

// Box is one highlight rectangle in page pixels at the current scale.
type Box struct {
	HighlightID string  `json:"highlight_id"`
	Color       string  `json:"color"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
}

// Layout scales the fraction rects of the given highlights to the page's
// current pixel dimensions. Highlights for other pages are skipped.
func Layout(highlights []models.Highlight, page int, pageWidthPx, pageHeightPx float64) []Box {
	if pageWidthPx <= 0 || pageHeightPx <= 0 {
		return nil
	}
	var boxes []Box
	for _, hl := range highlights {
		if hl.PageNumber != page {
			continue
		}
		color := hl.Color
		if color == "" {
			color = DefaultColor
		}
		for _, r := range hl.Rects {
			boxes = append(boxes, Box{
				HighlightID: hl.HighlightID,
				Color:       color,
				X:           r.X * pageWidthPx,
				Y:           r.Y * pageHeightPx,
				Width:       r.Width * pageWidthPx,
				Height:      r.Height * pageHeightPx,
			})
		}
	}
	return boxes
}

// HitTest resolves a click at page-pixel (x, y) to the topmost box under
// it. A hit is consumed by the overlay and must not fall through to the
// page beneath, which would clear the active text selection.
func HitTest(boxes []Box, x, y float64) (Box, bool) {
	for i := len(boxes) - 1; i >= 0; i-- {
		b := boxes[i]
		if x >= b.X && x <= b.X+b.Width && y >= b.Y && y <= b.Y+b.Height {
			return b, true
		}
	}
	return Box{}, false
}
