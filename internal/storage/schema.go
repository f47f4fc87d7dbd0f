package storage

import (
	"context"
	"fmt"
)

// Migrate creates the annotation tables and their secondary indexes.
// Highlights and comments are always queried through the document (and,
// for comments, highlight) indexes, never by full scan.
func Migrate(ctx context.Context, db *DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			document_id text PRIMARY KEY,
			filename    text NOT NULL,
			title       text,
			subject     text,
			page_count  integer NOT NULL DEFAULT 0,
			page_width  double precision NOT NULL DEFAULT 0,
			page_height double precision NOT NULL DEFAULT 0,
			status      text NOT NULL DEFAULT 'pending',
			fail_reason text,
			outline     jsonb,
			created_at  timestamptz NOT NULL DEFAULT NOW(),
			updated_at  timestamptz NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS highlights (
			highlight_id  text PRIMARY KEY,
			document_id   text NOT NULL,
			page_number   integer NOT NULL,
			rects         jsonb NOT NULL,
			selected_text text NOT NULL DEFAULT '',
			color         text NOT NULL,
			created_at    timestamptz NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS highlights_by_document ON highlights (document_id)`,
		`CREATE TABLE IF NOT EXISTS comments (
			comment_id   text PRIMARY KEY,
			highlight_id text NOT NULL,
			document_id  text NOT NULL,
			body         text NOT NULL,
			created_at   timestamptz NOT NULL DEFAULT NOW(),
			updated_at   timestamptz NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS comments_by_highlight ON comments (highlight_id)`,
		`CREATE INDEX IF NOT EXISTS comments_by_document ON comments (document_id)`,
		`CREATE TABLE IF NOT EXISTS viewer_prefs (
			document_id  text PRIMARY KEY,
			zoom         double precision NOT NULL DEFAULT 1.0,
			fit_width    boolean NOT NULL DEFAULT false,
			current_page integer NOT NULL DEFAULT 1,
			updated_at   timestamptz NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			note_id    text PRIMARY KEY,
			title      text NOT NULL DEFAULT '',
			content    text NOT NULL DEFAULT '',
			tags       text[] NOT NULL DEFAULT '{}',
			status     text NOT NULL DEFAULT 'draft',
			category   text,
			subject    text,
			created_at timestamptz NOT NULL DEFAULT NOW(),
			updated_at timestamptz NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS notes_by_subject ON notes (subject)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}
