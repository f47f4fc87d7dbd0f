package annotations

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"scribe/internal/models"
	"scribe/internal/util"
)

// MemStore is an in-memory Store with the same keying and ordering
// semantics as the Postgres store. Used by tests and by the standalone
// (no database) mode.
type MemStore struct {
	mu         sync.Mutex
	highlights map[string]models.Highlight
	comments   []models.Comment
}

func NewMemStore() *MemStore {
	return &MemStore{highlights: make(map[string]models.Highlight)}
}

func (s *MemStore) AddHighlight(_ context.Context, h models.Highlight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.highlights[h.HighlightID]; ok {
		return fmt.Errorf("highlight %s already exists", h.HighlightID)
	}
	s.highlights[h.HighlightID] = h
	return nil
}

func (s *MemStore) DeleteHighlight(_ context.Context, highlightID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.highlights, highlightID)
	return nil
}

func (s *MemStore) ListHighlights(_ context.Context, documentID string) ([]models.Highlight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Highlight, 0)
	for _, h := range s.highlights {
		if h.DocumentID == documentID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PageNumber != out[j].PageNumber {
			return out[i].PageNumber < out[j].PageNumber
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemStore) AddComment(_ context.Context, c models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments = append(s.comments, c)
	return nil
}

func (s *MemStore) UpdateComment(_ context.Context, commentID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.comments {
		if s.comments[i].CommentID == commentID {
			s.comments[i].Text = text
			s.comments[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("comment %s: %w", commentID, util.ErrNotFound)
}

func (s *MemStore) DeleteComment(_ context.Context, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.comments {
		if s.comments[i].CommentID == commentID {
			s.comments = append(s.comments[:i], s.comments[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *MemStore) DeleteCommentsByHighlight(_ context.Context, highlightID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.comments[:0]
	for _, c := range s.comments {
		if c.HighlightID != highlightID {
			kept = append(kept, c)
		}
	}
	s.comments = kept
	return nil
}

func (s *MemStore) ListComments(_ context.Context, documentID string) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Comment, 0)
	for _, c := range s.comments {
		if c.DocumentID == documentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemStore) ListCommentsByHighlight(_ context.Context, highlightID string) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Comment, 0)
	for _, c := range s.comments {
		if c.HighlightID == highlightID {
			out = append(out, c)
		}
	}
	return out, nil
}
