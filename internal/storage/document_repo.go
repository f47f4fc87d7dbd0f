package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"scribe/internal/models"
	"scribe/internal/util"
)

type DocumentRepo struct {
	db *DB
}

func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) UpsertDocument(ctx context.Context, d models.Document) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO documents (document_id, filename, title, subject, page_count, page_width, page_height, status, fail_reason)
VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), $5, $6, $7, $8, NULLIF($9,''))
ON CONFLICT (document_id)
DO UPDATE SET
  filename = EXCLUDED.filename,
  title = COALESCE(EXCLUDED.title, documents.title),
  subject = COALESCE(EXCLUDED.subject, documents.subject),
  status = EXCLUDED.status,
  fail_reason = EXCLUDED.fail_reason,
  updated_at = NOW()`,
		d.DocumentID, d.Filename, d.Title, d.Subject, d.PageCount, d.PageWidth, d.PageHeight, d.Status, d.FailReason,
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (r *DocumentRepo) UpdateStatus(ctx context.Context, documentID, status, failReason string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE documents SET status=$2, fail_reason=NULLIF($3,''), updated_at=NOW() WHERE document_id=$1`,
		documentID, status, failReason)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return nil
}

// SetGeometry records what the decoder learned about the document: page
// count and the unit-scale dimensions of page 1.
func (r *DocumentRepo) SetGeometry(ctx context.Context, documentID string, pageCount int, pageWidth, pageHeight float64) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE documents SET page_count=$2, page_width=$3, page_height=$4, updated_at=NOW()
WHERE document_id=$1`,
		documentID, pageCount, pageWidth, pageHeight)
	if err != nil {
		return fmt.Errorf("set document geometry: %w", err)
	}
	return nil
}

func (r *DocumentRepo) SetOutline(ctx context.Context, documentID string, outline []models.OutlineEntry) error {
	b, err := json.Marshal(outline)
	if err != nil {
		return fmt.Errorf("marshal outline: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx,
		`UPDATE documents SET outline=$2::jsonb, updated_at=NOW() WHERE document_id=$1`,
		documentID, string(b))
	if err != nil {
		return fmt.Errorf("set document outline: %w", err)
	}
	return nil
}

func (r *DocumentRepo) GetDocument(ctx context.Context, documentID string) (models.Document, error) {
	var d models.Document
	err := r.db.Pool.QueryRow(ctx, `
SELECT document_id, filename, COALESCE(title,''), COALESCE(subject,''), page_count, page_width, page_height,
       status, COALESCE(fail_reason,''), created_at, updated_at
FROM documents
WHERE document_id=$1`, documentID).
		Scan(&d.DocumentID, &d.Filename, &d.Title, &d.Subject, &d.PageCount, &d.PageWidth, &d.PageHeight,
			&d.Status, &d.FailReason, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Document{}, fmt.Errorf("document %s: %w", documentID, util.ErrNotFound)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (r *DocumentRepo) GetOutline(ctx context.Context, documentID string) ([]models.OutlineEntry, error) {
	var raw []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT outline FROM documents WHERE document_id=$1`, documentID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", documentID, util.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document outline: %w", err)
	}
	if len(raw) == 0 {
		return []models.OutlineEntry{}, nil
	}
	var outline []models.OutlineEntry
	if err := json.Unmarshal(raw, &outline); err != nil {
		return nil, fmt.Errorf("decode document outline: %w", err)
	}
	return outline, nil
}

func (r *DocumentRepo) ListDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT document_id, filename, COALESCE(title,''), COALESCE(subject,''), page_count, page_width, page_height,
       status, COALESCE(fail_reason,''), created_at, updated_at
FROM documents
ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]models.Document, 0)
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.DocumentID, &d.Filename, &d.Title, &d.Subject, &d.PageCount, &d.PageWidth, &d.PageHeight,
			&d.Status, &d.FailReason, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}
