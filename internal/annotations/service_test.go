package annotations

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"scribe/internal/models"
	"scribe/internal/overlay"
)

func unitRects() []models.Rect {
	return []models.Rect{{X: 0.1, Y: 0.2, Width: 0.5, Height: 0.03}}
}

func TestAddHighlightPersistsThenAppears(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	svc := NewService(store, "doc1", "")
	require.NoError(t, svc.Load(ctx))

	h, err := svc.AddHighlight(ctx, 3, unitRects(), "selected words", "")
	require.NoError(t, err)
	require.NotEmpty(t, h.HighlightID)
	require.Equal(t, overlay.DefaultColor, h.Color)
	require.Equal(t, "doc1", h.DocumentID)

	// visible both in memory and through a fresh load
	require.Len(t, svc.Highlights(), 1)
	fresh := NewService(store, "doc1", "")
	require.NoError(t, fresh.Load(ctx))
	require.Len(t, fresh.Highlights(), 1)
}

func TestAddHighlightValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemStore(), "doc1", "")

	_, err := svc.AddHighlight(ctx, 0, unitRects(), "text", "")
	require.Error(t, err)

	_, err = svc.AddHighlight(ctx, 1, nil, "text", "")
	require.Error(t, err)

	_, err = svc.AddHighlight(ctx, 1, []models.Rect{{X: 0.9, Y: 0.2, Width: 0.5, Height: 0.03}}, "text", "")
	require.Error(t, err)
}

func TestDeleteHighlightCascades(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	svc := NewService(store, "doc1", "")
	require.NoError(t, svc.Load(ctx))

	h, err := svc.AddHighlight(ctx, 1, unitRects(), "text", "#ff0000")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, h.HighlightID, "first")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, h.HighlightID, "second")
	require.NoError(t, err)

	keep, err := svc.AddHighlight(ctx, 2, unitRects(), "other", "")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, keep.HighlightID, "keep me")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteHighlight(ctx, h.HighlightID))

	require.Len(t, svc.Highlights(), 1)
	grouped := svc.Comments()
	require.NotContains(t, grouped, h.HighlightID)
	require.Len(t, grouped[keep.HighlightID], 1)

	comments, err := store.ListComments(ctx, "doc1")
	require.NoError(t, err)
	require.Len(t, comments, 1)
}

// failingStore wraps a MemStore and fails DeleteHighlight, to pin down
// the cascade order: comments are gone, the highlight survives, and no
// comment can ever be orphaned.
type failingStore struct {
	*MemStore
}

func (s *failingStore) DeleteHighlight(context.Context, string) error {
	return errors.New("connection reset")
}

func TestCascadeFailureLeavesNoOrphanedComments(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{NewMemStore()}
	svc := NewService(store, "doc1", "")
	require.NoError(t, svc.Load(ctx))

	h, err := svc.AddHighlight(ctx, 1, unitRects(), "text", "")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, h.HighlightID, "note")
	require.NoError(t, err)

	require.Error(t, svc.DeleteHighlight(ctx, h.HighlightID))

	// highlight is orphaned but present; its comments are gone
	highlights, err := store.ListHighlights(ctx, "doc1")
	require.NoError(t, err)
	require.Len(t, highlights, 1)
	comments, err := store.ListComments(ctx, "doc1")
	require.NoError(t, err)
	require.Empty(t, comments)
}

func TestListCommentsByHighlightFiltersThread(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	svc := NewService(store, "doc1", "")
	require.NoError(t, svc.Load(ctx))

	h1, err := svc.AddHighlight(ctx, 1, unitRects(), "first", "")
	require.NoError(t, err)
	h2, err := svc.AddHighlight(ctx, 2, unitRects(), "second", "")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, h1.HighlightID, "opening thought")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, h2.HighlightID, "unrelated")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, h1.HighlightID, "follow up")
	require.NoError(t, err)

	thread, err := store.ListCommentsByHighlight(ctx, h1.HighlightID)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	require.Equal(t, "opening thought", thread[0].Text)
	require.Equal(t, "follow up", thread[1].Text)
}

func TestUpdateAndDeleteComment(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	svc := NewService(store, "doc1", "")
	require.NoError(t, svc.Load(ctx))

	h, err := svc.AddHighlight(ctx, 1, unitRects(), "text", "")
	require.NoError(t, err)
	c, err := svc.AddComment(ctx, h.HighlightID, "draft")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateComment(ctx, c.CommentID, "final"))
	grouped := svc.Comments()
	require.Equal(t, "final", grouped[h.HighlightID][0].Text)
	require.True(t, grouped[h.HighlightID][0].UpdatedAt.After(c.CreatedAt) ||
		grouped[h.HighlightID][0].UpdatedAt.Equal(c.CreatedAt))

	require.NoError(t, svc.DeleteComment(ctx, c.CommentID))
	require.Empty(t, svc.Comments()[h.HighlightID])

	// the highlight itself is untouched
	require.Len(t, svc.Highlights(), 1)
}

func TestUpdateCommentFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	svc := NewService(store, "doc1", "")
	require.NoError(t, svc.Load(ctx))

	h, err := svc.AddHighlight(ctx, 1, unitRects(), "text", "")
	require.NoError(t, err)
	c, err := svc.AddComment(ctx, h.HighlightID, "original")
	require.NoError(t, err)

	require.Error(t, svc.UpdateComment(ctx, "missing-id", "whatever"))
	require.Equal(t, "original", svc.Comments()[h.HighlightID][0].Text)
	_ = c
}

// Mirrors a full annotation session on a ten page document: select,
// highlight, comment, reload, cascade.
func TestAnnotationRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	svc := NewService(store, "doc-roundtrip", "")
	require.NoError(t, svc.Load(ctx))

	h3, err := svc.AddHighlight(ctx, 3, []models.Rect{
		{X: 0.12, Y: 0.40, Width: 0.55, Height: 0.02},
		{X: 0.12, Y: 0.43, Width: 0.30, Height: 0.02},
	}, "a two-line selection", "")
	require.NoError(t, err)
	h7, err := svc.AddHighlight(ctx, 7, unitRects(), "later page", "#d0ebff")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, h3.HighlightID, "check this claim")
	require.NoError(t, err)

	// reopen the document
	svc = NewService(store, "doc-roundtrip", "")
	require.NoError(t, svc.Load(ctx))
	highlights := svc.Highlights()
	require.Len(t, highlights, 2)
	require.Equal(t, 3, highlights[0].PageNumber)
	require.Equal(t, 7, highlights[1].PageNumber)
	require.Len(t, svc.Comments()[h3.HighlightID], 1)

	// overlay geometry at two zoom levels, same fractions
	boxes1 := overlay.Layout(highlights, 3, 612, 792)
	boxes2 := overlay.Layout(highlights, 3, 1224, 1584)
	require.Len(t, boxes1, 2)
	require.InDelta(t, boxes1[0].X*2, boxes2[0].X, 0.001)
	require.InDelta(t, boxes1[0].Width*2, boxes2[0].Width, 0.001)

	require.NoError(t, svc.DeleteHighlight(ctx, h3.HighlightID))
	require.Len(t, svc.Highlights(), 1)
	require.Equal(t, h7.HighlightID, svc.Highlights()[0].HighlightID)
}
