package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"scribe/internal/models"
)

type HighlightRepo struct {
	db *DB
}

func NewHighlightRepo(db *DB) *HighlightRepo {
	return &HighlightRepo{db: db}
}

func (r *HighlightRepo) AddHighlight(ctx context.Context, h models.Highlight) error {
	rects, err := json.Marshal(h.Rects)
	if err != nil {
		return fmt.Errorf("marshal highlight rects: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
INSERT INTO highlights (highlight_id, document_id, page_number, rects, selected_text, color, created_at)
VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7)`,
		h.HighlightID, h.DocumentID, h.PageNumber, string(rects), h.SelectedText, h.Color, h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("add highlight: %w", err)
	}
	return nil
}

func (r *HighlightRepo) DeleteHighlight(ctx context.Context, highlightID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM highlights WHERE highlight_id=$1`, highlightID)
	if err != nil {
		return fmt.Errorf("delete highlight: %w", err)
	}
	return nil
}

// ListByDocument returns a document's highlights ordered for panel
// display: by page, then creation time.
func (r *HighlightRepo) ListByDocument(ctx context.Context, documentID string) ([]models.Highlight, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT highlight_id, document_id, page_number, rects, selected_text, color, created_at
FROM highlights
WHERE document_id=$1
ORDER BY page_number ASC, created_at ASC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list highlights: %w", err)
	}
	defer rows.Close()

	out := make([]models.Highlight, 0)
	for rows.Next() {
		var h models.Highlight
		var rects []byte
		if err := rows.Scan(&h.HighlightID, &h.DocumentID, &h.PageNumber, &rects, &h.SelectedText, &h.Color, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan highlight: %w", err)
		}
		if err := json.Unmarshal(rects, &h.Rects); err != nil {
			return nil, fmt.Errorf("decode highlight rects: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate highlights: %w", err)
	}
	return out, nil
}
