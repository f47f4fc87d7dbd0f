package models

import "time"

// Rect is a highlight rectangle expressed as fractions of the page's
// rendered width and height (0..1), so stored geometry is independent
// of the zoom scale in effect when the selection was made.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Document struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	Title      string    `json:"title,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	PageCount  int       `json:"page_count"`
	PageWidth  float64   `json:"page_width"`
	PageHeight float64   `json:"page_height"`
	Status     string    `json:"status"`
	FailReason string    `json:"fail_reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// OutlineEntry is one node of a document's navigation tree. DestTop is
// the offset from the top of the target page in unit-scale units; nil
// means top of page.
type OutlineEntry struct {
	Title      string         `json:"title"`
	PageNumber int            `json:"page_number"`
	DestTop    *float64       `json:"dest_top,omitempty"`
	Children   []OutlineEntry `json:"children,omitempty"`
}

type Highlight struct {
	HighlightID  string    `json:"highlight_id"`
	DocumentID   string    `json:"document_id"`
	PageNumber   int       `json:"page_number"`
	Rects        []Rect    `json:"rects"`
	SelectedText string    `json:"selected_text"`
	Color        string    `json:"color"`
	CreatedAt    time.Time `json:"created_at"`
}

type Comment struct {
	CommentID   string    `json:"comment_id"`
	HighlightID string    `json:"highlight_id"`
	DocumentID  string    `json:"document_id"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ViewerPrefs struct {
	Zoom        float64 `json:"zoom"`
	FitWidth    bool    `json:"fit_width"`
	CurrentPage int     `json:"current_page"`
}

// ScrollPosition records where the reader is inside a document,
// independent of the current zoom. OffsetTop is how far the container
// has scrolled into the page, in unit-scale units.
type ScrollPosition struct {
	Page      int     `json:"page"`
	OffsetTop float64 `json:"offset_top"`
}

type Note struct {
	NoteID    string    `json:"note_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	Status    string    `json:"status"`
	Category  string    `json:"category,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
