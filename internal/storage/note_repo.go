package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"scribe/internal/models"
	"scribe/internal/util"
)

type NoteRepo struct {
	db *DB
}

func NewNoteRepo(db *DB) *NoteRepo {
	return &NoteRepo{db: db}
}

func (r *NoteRepo) UpsertNote(ctx context.Context, n models.Note) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO notes (note_id, title, content, tags, status, category, subject)
VALUES ($1, $2, $3, $4, $5, NULLIF($6,''), NULLIF($7,''))
ON CONFLICT (note_id)
DO UPDATE SET
  title = EXCLUDED.title,
  content = EXCLUDED.content,
  tags = EXCLUDED.tags,
  status = EXCLUDED.status,
  category = EXCLUDED.category,
  subject = EXCLUDED.subject,
  updated_at = NOW()`,
		n.NoteID, n.Title, n.Content, n.Tags, n.Status, n.Category, n.Subject,
	)
	if err != nil {
		return fmt.Errorf("upsert note: %w", err)
	}
	return nil
}

func (r *NoteRepo) GetNote(ctx context.Context, noteID string) (models.Note, error) {
	var n models.Note
	err := r.db.Pool.QueryRow(ctx, `
SELECT note_id, title, content, tags, status, COALESCE(category,''), COALESCE(subject,''), created_at, updated_at
FROM notes
WHERE note_id=$1`, noteID).
		Scan(&n.NoteID, &n.Title, &n.Content, &n.Tags, &n.Status, &n.Category, &n.Subject, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Note{}, fmt.Errorf("note %s: %w", noteID, util.ErrNotFound)
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

// ListBySubject backs the "notes for this subject" side panel.
func (r *NoteRepo) ListBySubject(ctx context.Context, subject string) ([]models.Note, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT note_id, title, content, tags, status, COALESCE(category,''), COALESCE(subject,''), created_at, updated_at
FROM notes
WHERE subject=$1
ORDER BY updated_at DESC`, subject)
	if err != nil {
		return nil, fmt.Errorf("list notes by subject: %w", err)
	}
	defer rows.Close()

	out := make([]models.Note, 0)
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.NoteID, &n.Title, &n.Content, &n.Tags, &n.Status, &n.Category, &n.Subject, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return out, nil
}

func (r *NoteRepo) DeleteNote(ctx context.Context, noteID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM notes WHERE note_id=$1`, noteID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}
