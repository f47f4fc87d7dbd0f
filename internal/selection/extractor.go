// Package selection converts a live text selection over a rendered page
// into page-relative, scale-independent highlight geometry.
package selection

import (
	"strings"

	"scribe/internal/models"
	"scribe/internal/util"
)

// Point is a client-space coordinate in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ClientRect is one visual line fragment of the selection, in client
// space pixels.
type ClientRect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RawSelection is what the rendered page reports: the selected string,
// the line rectangles in client space, and the geometry of the page
// container they were measured against.
type RawSelection struct {
	Text         string       `json:"text"`
	PageNumber   int          `json:"page_number"`
	PageOrigin   Point        `json:"page_origin"`
	PageWidthPx  float64      `json:"page_width_px"`
	PageHeightPx float64      `json:"page_height_px"`
	LineRects    []ClientRect `json:"line_rects"`
}

// TextSelection is the normalized result: rects as fractions of the page
// dimensions, invariant under zoom, plus the anchor for the floating
// action toolbar (client-space top-center of the first line).
type TextSelection struct {
	Text           string        `json:"text"`
	Rects          []models.Rect `json:"rects"`
	PageNumber     int           `json:"page_number"`
	AnchorPosition Point         `json:"anchor_position"`
}

// Extract normalizes a raw selection. It rejects selections that are
// empty or collapsed, pages whose pixel dimensions are not yet known
// (page still rendering), and rects that fall outside the page box.
func Extract(in RawSelection) (*TextSelection, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" || len(in.LineRects) == 0 {
		return nil, util.ErrEmptySelection
	}
	if in.PageWidthPx <= 0 || in.PageHeightPx <= 0 {
		return nil, util.ErrPageNotLaidOut
	}

	rects := make([]models.Rect, 0, len(in.LineRects))
	for _, cr := range in.LineRects {
		if cr.Width <= 0 || cr.Height <= 0 {
			continue
		}
		r := models.Rect{
			X:      (cr.Left - in.PageOrigin.X) / in.PageWidthPx,
			Y:      (cr.Top - in.PageOrigin.Y) / in.PageHeightPx,
			Width:  cr.Width / in.PageWidthPx,
			Height: cr.Height / in.PageHeightPx,
		}
		if r.X < 0 || r.Y < 0 || r.X+r.Width > 1 || r.Y+r.Height > 1 {
			return nil, util.ErrOutsidePage
		}
		rects = append(rects, r)
	}
	if len(rects) == 0 {
		return nil, util.ErrEmptySelection
	}

	first := in.LineRects[0]
	return &TextSelection{
		Text:       text,
		Rects:      rects,
		PageNumber: in.PageNumber,
		AnchorPosition: Point{
			X: first.Left + first.Width/2,
			Y: first.Top,
		},
	}, nil
}
