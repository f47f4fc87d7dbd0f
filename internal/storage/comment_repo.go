package storage

import (
	"context"
	"fmt"

	"scribe/internal/models"
)

type CommentRepo struct {
	db *DB
}

func NewCommentRepo(db *DB) *CommentRepo {
	return &CommentRepo{db: db}
}

func (r *CommentRepo) AddComment(ctx context.Context, c models.Comment) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO comments (comment_id, highlight_id, document_id, body, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		c.CommentID, c.HighlightID, c.DocumentID, c.Text, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("add comment: %w", err)
	}
	return nil
}

func (r *CommentRepo) UpdateComment(ctx context.Context, commentID, text string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE comments SET body=$2, updated_at=NOW() WHERE comment_id=$1`, commentID, text)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return nil
}

func (r *CommentRepo) DeleteComment(ctx context.Context, commentID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM comments WHERE comment_id=$1`, commentID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// DeleteByHighlight removes every comment attached to a highlight. It
// runs before the highlight itself is deleted, so an interrupted cascade
// can leave a highlight without comments but never comments without
// their highlight.
func (r *CommentRepo) DeleteByHighlight(ctx context.Context, highlightID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM comments WHERE highlight_id=$1`, highlightID)
	if err != nil {
		return fmt.Errorf("delete comments by highlight: %w", err)
	}
	return nil
}

// ListByDocument returns all comments for a document in insertion order,
// for grouping by highlight in the side panel.
func (r *CommentRepo) ListByDocument(ctx context.Context, documentID string) ([]models.Comment, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT comment_id, highlight_id, document_id, body, created_at, updated_at
FROM comments
WHERE document_id=$1
ORDER BY created_at ASC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	out := make([]models.Comment, 0)
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.CommentID, &c.HighlightID, &c.DocumentID, &c.Text, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return out, nil
}

func (r *CommentRepo) ListByHighlight(ctx context.Context, highlightID string) ([]models.Comment, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT comment_id, highlight_id, document_id, body, created_at, updated_at
FROM comments
WHERE highlight_id=$1
ORDER BY created_at ASC`, highlightID)
	if err != nil {
		return nil, fmt.Errorf("list comments by highlight: %w", err)
	}
	defer rows.Close()

	out := make([]models.Comment, 0)
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.CommentID, &c.HighlightID, &c.DocumentID, &c.Text, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan comment by highlight: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
