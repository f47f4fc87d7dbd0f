package activities

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/config"
	"scribe/internal/models"
	"scribe/internal/pdfdoc"
	"scribe/internal/storage"
	"scribe/internal/util"

	"github.com/ledongthuc/pdf"
	"go.temporal.io/sdk/temporal"
)

// Error types for activity failures that are terminal, not transient.
// Returned as non-retryable application errors so the ingest workflow
// sees them on the first attempt.
const (
	ErrTypeDocumentCorrupt   = "DocumentCorrupt"
	ErrTypeNoExtractableText = "NoExtractableText"
)

type Activities struct {
	cfg     config.Config
	docRepo *storage.DocumentRepo
}

func New(cfg config.Config, db *storage.DB) *Activities {
	return &Activities{
		cfg:     cfg,
		docRepo: storage.NewDocumentRepo(db),
	}
}

func (a *Activities) ComputeDocumentIDActivity(ctx context.Context, in ComputeDocumentIDInput) (ComputeDocumentIDOutput, error) {
	_ = ctx
	f, err := os.Open(in.DocumentPath)
	if err != nil {
		return ComputeDocumentIDOutput{}, fmt.Errorf("open file for hash: %w", err)
	}
	defer f.Close()
	id, err := util.SHA256HexFromReader(f)
	if err != nil {
		return ComputeDocumentIDOutput{}, fmt.Errorf("hash file: %w", err)
	}
	return ComputeDocumentIDOutput{DocumentID: id}, nil
}

// ProbeDocumentActivity opens the PDF and reads its page count and the
// unit-scale size of page one. A parse failure here means the file is
// not viewable at all.
func (a *Activities) ProbeDocumentActivity(ctx context.Context, in ProbeDocumentInput) (ProbeDocumentOutput, error) {
	_ = ctx
	doc, err := pdfdoc.Open(in.DocumentPath)
	if err != nil {
		if errors.Is(err, util.ErrDocumentCorrupt) {
			return ProbeDocumentOutput{}, temporal.NewNonRetryableApplicationError(
				"document cannot be parsed", ErrTypeDocumentCorrupt, err)
		}
		return ProbeDocumentOutput{}, fmt.Errorf("probe document: %w", err)
	}
	defer doc.Close()
	return ProbeDocumentOutput{
		PageCount:  doc.PageCount(),
		PageWidth:  doc.PageWidth(),
		PageHeight: doc.PageHeight(),
	}, nil
}

func (a *Activities) RecordGeometryActivity(ctx context.Context, in RecordGeometryInput) error {
	return a.docRepo.SetGeometry(ctx, in.DocumentID, in.PageCount, in.PageWidth, in.PageHeight)
}

// ResolveOutlineActivity extracts the navigation tree, persists it on
// the document row and writes it as an artifact next to the extracted
// text.
func (a *Activities) ResolveOutlineActivity(ctx context.Context, in ResolveOutlineInput) (ResolveOutlineOutput, error) {
	doc, err := pdfdoc.Open(in.DocumentPath)
	if err != nil {
		return ResolveOutlineOutput{}, fmt.Errorf("open document: %w", err)
	}
	defer doc.Close()

	entries := doc.Outline()
	if err := a.docRepo.SetOutline(ctx, in.DocumentID, entries); err != nil {
		return ResolveOutlineOutput{}, err
	}
	path := filepath.Join(a.cfg.ArtifactsRoot, "documents", in.DocumentID, "outline.json")
	if err := util.WriteJSONAtomic(path, entries); err != nil {
		return ResolveOutlineOutput{}, err
	}
	return ResolveOutlineOutput{Entries: entries, Count: countEntries(entries)}, nil
}

func countEntries(entries []models.OutlineEntry) int {
	n := 0
	for _, e := range entries {
		n += 1 + countEntries(e.Children)
	}
	return n
}

func (a *Activities) ExtractTextActivity(ctx context.Context, in ExtractTextInput) (ExtractTextOutput, error) {
	_ = ctx
	f, r, err := pdf.Open(in.DocumentPath)
	if err != nil {
		return ExtractTextOutput{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return ExtractTextOutput{}, fmt.Errorf("extract pdf text: %w", err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return ExtractTextOutput{}, fmt.Errorf("read extracted text: %w", err)
	}
	text := strings.TrimSpace(buf.String())
	text = util.SanitizeText(text)
	if text == "" {
		// Retrying a scanned or image-only PDF will never produce text.
		return ExtractTextOutput{}, temporal.NewNonRetryableApplicationError(
			util.ErrNoExtractableText.Error(), ErrTypeNoExtractableText, util.ErrNoExtractableText)
	}
	return ExtractTextOutput{Text: text}, nil
}

func (a *Activities) WriteDocumentArtifactsActivity(ctx context.Context, in WriteDocumentArtifactsInput) error {
	_ = ctx
	base := filepath.Join(a.cfg.ArtifactsRoot, "documents", in.DocumentID)
	if err := util.EnsureDir(base); err != nil {
		return err
	}
	if err := util.WriteJSONAtomic(filepath.Join(base, "metadata.json"), in.Metadata); err != nil {
		return err
	}
	if in.Text != "" {
		if err := util.WriteTextAtomic(filepath.Join(base, "text.txt"), in.Text); err != nil {
			return err
		}
	}
	return nil
}

func (a *Activities) UpdateDocumentStatusActivity(ctx context.Context, in UpdateDocumentStatusInput) error {
	return a.docRepo.UpsertDocument(ctx, models.Document{
		DocumentID: in.DocumentID,
		Filename:   in.Filename,
		Title:      in.Title,
		Subject:    in.Subject,
		Status:     in.Status,
		FailReason: in.FailReason,
	})
}
