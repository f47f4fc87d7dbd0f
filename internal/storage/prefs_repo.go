package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"scribe/internal/models"
)

type PrefsRepo struct {
	db *DB
}

func NewPrefsRepo(db *DB) *PrefsRepo {
	return &PrefsRepo{db: db}
}

// Get returns the saved viewer preferences for a document, or nil when
// the document has never been opened.
func (r *PrefsRepo) Get(ctx context.Context, documentID string) (*models.ViewerPrefs, error) {
	var p models.ViewerPrefs
	err := r.db.Pool.QueryRow(ctx,
		`SELECT zoom, fit_width, current_page FROM viewer_prefs WHERE document_id=$1`, documentID).
		Scan(&p.Zoom, &p.FitWidth, &p.CurrentPage)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get viewer prefs: %w", err)
	}
	return &p, nil
}

// Save upserts the preferences; last write wins.
func (r *PrefsRepo) Save(ctx context.Context, documentID string, p models.ViewerPrefs) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO viewer_prefs (document_id, zoom, fit_width, current_page)
VALUES ($1, $2, $3, $4)
ON CONFLICT (document_id)
DO UPDATE SET zoom=EXCLUDED.zoom, fit_width=EXCLUDED.fit_width, current_page=EXCLUDED.current_page, updated_at=NOW()`,
		documentID, p.Zoom, p.FitWidth, p.CurrentPage)
	if err != nil {
		return fmt.Errorf("save viewer prefs: %w", err)
	}
	return nil
}
