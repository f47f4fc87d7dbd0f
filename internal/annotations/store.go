// Package annotations manages a document's highlights and their threaded
// comments: persistence, the cascade delete order, and the grouped
// in-memory view the side panels read.
package annotations

import (
	"context"

	"scribe/internal/models"
	"scribe/internal/storage"
)

// Store is the persistence contract for highlights and comments. All
// reads are keyed by document (and highlight) identity. The store does
// not serialize mutations; callers must not issue overlapping mutations
// against the same record.
type Store interface {
	AddHighlight(ctx context.Context, h models.Highlight) error
	DeleteHighlight(ctx context.Context, highlightID string) error
	ListHighlights(ctx context.Context, documentID string) ([]models.Highlight, error)

	AddComment(ctx context.Context, c models.Comment) error
	UpdateComment(ctx context.Context, commentID, text string) error
	DeleteComment(ctx context.Context, commentID string) error
	DeleteCommentsByHighlight(ctx context.Context, highlightID string) error
	ListComments(ctx context.Context, documentID string) ([]models.Comment, error)
	ListCommentsByHighlight(ctx context.Context, highlightID string) ([]models.Comment, error)
}

// PGStore backs the annotation store with the Postgres repos.
type PGStore struct {
	highlights *storage.HighlightRepo
	comments   *storage.CommentRepo
}

func NewPGStore(db *storage.DB) *PGStore {
	return &PGStore{
		highlights: storage.NewHighlightRepo(db),
		comments:   storage.NewCommentRepo(db),
	}
}

func (s *PGStore) AddHighlight(ctx context.Context, h models.Highlight) error {
	return s.highlights.AddHighlight(ctx, h)
}

func (s *PGStore) DeleteHighlight(ctx context.Context, highlightID string) error {
	return s.highlights.DeleteHighlight(ctx, highlightID)
}

func (s *PGStore) ListHighlights(ctx context.Context, documentID string) ([]models.Highlight, error) {
	return s.highlights.ListByDocument(ctx, documentID)
}

func (s *PGStore) AddComment(ctx context.Context, c models.Comment) error {
	return s.comments.AddComment(ctx, c)
}

func (s *PGStore) UpdateComment(ctx context.Context, commentID, text string) error {
	return s.comments.UpdateComment(ctx, commentID, text)
}

func (s *PGStore) DeleteComment(ctx context.Context, commentID string) error {
	return s.comments.DeleteComment(ctx, commentID)
}

func (s *PGStore) DeleteCommentsByHighlight(ctx context.Context, highlightID string) error {
	return s.comments.DeleteByHighlight(ctx, highlightID)
}

func (s *PGStore) ListComments(ctx context.Context, documentID string) ([]models.Comment, error) {
	return s.comments.ListByDocument(ctx, documentID)
}

func (s *PGStore) ListCommentsByHighlight(ctx context.Context, highlightID string) ([]models.Comment, error) {
	return s.comments.ListByHighlight(ctx, highlightID)
}
