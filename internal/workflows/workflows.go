package workflows

import (
	"errors"
	"time"

	"scribe/internal/activities"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const QueryGetProgress = "GetProgress"

// DocumentIngestWorkflow prepares an uploaded PDF for viewing: content
// hash, parse probe, outline resolution, plain text extraction, and the
// on-disk artifacts. A file that cannot be parsed is marked failed and
// the workflow completes; a file with no extractable text is still
// viewable, so only the text step is marked failed.
func DocumentIngestWorkflow(ctx workflow.Context, input DocumentIngestInput) (string, error) {
	progress := DocumentIngestProgress{
		CurrentStep: "init",
		Status:      "processing",
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetProgress, func() (DocumentIngestProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
			NonRetryableErrorTypes: []string{
				activities.ErrTypeDocumentCorrupt,
				activities.ErrTypeNoExtractableText,
			},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	progress.CurrentStep = "compute_document_id"
	progress.Steps[progress.CurrentStep] = "processing"
	var idOut activities.ComputeDocumentIDOutput
	if err := workflow.ExecuteActivity(ctx, "ComputeDocumentIDActivity", activities.ComputeDocumentIDInput{DocumentPath: input.DocumentPath}).Get(ctx, &idOut); err != nil {
		return "", err
	}
	progress.DocumentID = idOut.DocumentID
	progress.Steps[progress.CurrentStep] = "done"

	_ = workflow.ExecuteActivity(ctx, "UpdateDocumentStatusActivity", activities.UpdateDocumentStatusInput{
		DocumentID: idOut.DocumentID,
		Filename:   input.Filename,
		Title:      input.Title,
		Subject:    input.Subject,
		Status:     "processing",
	}).Get(ctx, nil)

	progress.CurrentStep = "probe_document"
	progress.Steps[progress.CurrentStep] = "processing"
	var probeOut activities.ProbeDocumentOutput
	if err := workflow.ExecuteActivity(ctx, "ProbeDocumentActivity", activities.ProbeDocumentInput{DocumentPath: input.DocumentPath}).Get(ctx, &probeOut); err != nil {
		if isCorruptError(err) {
			progress.Status = "failed"
			progress.FailReason = "document cannot be parsed"
			progress.Steps[progress.CurrentStep] = "failed"
			_ = workflow.ExecuteActivity(ctx, "UpdateDocumentStatusActivity", activities.UpdateDocumentStatusInput{
				DocumentID: idOut.DocumentID,
				Filename:   input.Filename,
				Title:      input.Title,
				Subject:    input.Subject,
				Status:     "failed",
				FailReason: progress.FailReason,
			}).Get(ctx, nil)
			return progress.Status, nil
		}
		return "", err
	}
	progress.PageCount = probeOut.PageCount
	progress.Steps[progress.CurrentStep] = "done"

	progress.CurrentStep = "record_geometry"
	progress.Steps[progress.CurrentStep] = "processing"
	if err := workflow.ExecuteActivity(ctx, "RecordGeometryActivity", activities.RecordGeometryInput{
		DocumentID: idOut.DocumentID,
		PageCount:  probeOut.PageCount,
		PageWidth:  probeOut.PageWidth,
		PageHeight: probeOut.PageHeight,
	}).Get(ctx, nil); err != nil {
		return "", err
	}
	progress.Steps[progress.CurrentStep] = "done"

	progress.CurrentStep = "resolve_outline"
	progress.Steps[progress.CurrentStep] = "processing"
	var outlineOut activities.ResolveOutlineOutput
	if err := workflow.ExecuteActivity(ctx, "ResolveOutlineActivity", activities.ResolveOutlineInput{
		DocumentID:   idOut.DocumentID,
		DocumentPath: input.DocumentPath,
	}).Get(ctx, &outlineOut); err != nil {
		return "", err
	}
	progress.OutlineCount = outlineOut.Count
	progress.Steps[progress.CurrentStep] = "done"

	progress.CurrentStep = "extract_text"
	progress.Steps[progress.CurrentStep] = "processing"
	var textOut activities.ExtractTextOutput
	if err := workflow.ExecuteActivity(ctx, "ExtractTextActivity", activities.ExtractTextInput{DocumentPath: input.DocumentPath}).Get(ctx, &textOut); err != nil {
		if !isNoTextError(err) {
			return "", err
		}
		progress.Steps[progress.CurrentStep] = "failed"
	} else {
		progress.Steps[progress.CurrentStep] = "done"
	}

	progress.CurrentStep = "write_artifacts"
	progress.Steps[progress.CurrentStep] = "processing"
	if err := workflow.ExecuteActivity(ctx, "WriteDocumentArtifactsActivity", activities.WriteDocumentArtifactsInput{
		DocumentID: idOut.DocumentID,
		Metadata: map[string]any{
			"document_id":   idOut.DocumentID,
			"filename":      input.Filename,
			"title":         input.Title,
			"subject":       input.Subject,
			"page_count":    probeOut.PageCount,
			"page_width":    probeOut.PageWidth,
			"page_height":   probeOut.PageHeight,
			"outline_count": outlineOut.Count,
			"steps":         progress.Steps,
			"generated_at":  workflow.Now(ctx),
		},
		Text: textOut.Text,
	}).Get(ctx, nil); err != nil {
		return "", err
	}
	progress.Steps[progress.CurrentStep] = "done"

	progress.CurrentStep = "mark_ready"
	progress.Steps[progress.CurrentStep] = "processing"
	if err := workflow.ExecuteActivity(ctx, "UpdateDocumentStatusActivity", activities.UpdateDocumentStatusInput{
		DocumentID: idOut.DocumentID,
		Filename:   input.Filename,
		Title:      input.Title,
		Subject:    input.Subject,
		Status:     "ready",
	}).Get(ctx, nil); err != nil {
		return "", err
	}
	progress.Steps[progress.CurrentStep] = "done"
	progress.CurrentStep = "done"
	progress.Status = "ready"
	return progress.Status, nil
}

// Terminal activity failures arrive as typed application errors. The
// type decides whether the document is unviewable or merely carries no
// selectable text.
func isCorruptError(err error) bool {
	var appErr *temporal.ApplicationError
	return errors.As(err, &appErr) && appErr.Type() == activities.ErrTypeDocumentCorrupt
}

func isNoTextError(err error) bool {
	var appErr *temporal.ApplicationError
	return errors.As(err, &appErr) && appErr.Type() == activities.ErrTypeNoExtractableText
}
