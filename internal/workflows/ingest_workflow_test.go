package workflows

import (
	"context"
	"testing"

	"scribe/internal/activities"
	"scribe/internal/util"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func registerIngestActivities(env *testsuite.TestWorkflowEnvironment) {
	registerActivityName(env, "ComputeDocumentIDActivity", func(context.Context, activities.ComputeDocumentIDInput) (activities.ComputeDocumentIDOutput, error) {
		return activities.ComputeDocumentIDOutput{}, nil
	})
	registerActivityName(env, "UpdateDocumentStatusActivity", func(context.Context, activities.UpdateDocumentStatusInput) error { return nil })
	registerActivityName(env, "ProbeDocumentActivity", func(context.Context, activities.ProbeDocumentInput) (activities.ProbeDocumentOutput, error) {
		return activities.ProbeDocumentOutput{}, nil
	})
	registerActivityName(env, "RecordGeometryActivity", func(context.Context, activities.RecordGeometryInput) error { return nil })
	registerActivityName(env, "ResolveOutlineActivity", func(context.Context, activities.ResolveOutlineInput) (activities.ResolveOutlineOutput, error) {
		return activities.ResolveOutlineOutput{}, nil
	})
	registerActivityName(env, "ExtractTextActivity", func(context.Context, activities.ExtractTextInput) (activities.ExtractTextOutput, error) {
		return activities.ExtractTextOutput{}, nil
	})
	registerActivityName(env, "WriteDocumentArtifactsActivity", func(context.Context, activities.WriteDocumentArtifactsInput) error { return nil })
}

func TestDocumentIngestWorkflowSuccess(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentIngestWorkflow)
	registerIngestActivities(env)

	env.OnActivity("ComputeDocumentIDActivity", mock.Anything, activities.ComputeDocumentIDInput{DocumentPath: "/tmp/d.pdf"}).
		Return(activities.ComputeDocumentIDOutput{DocumentID: "doc123"}, nil)
	env.OnActivity("UpdateDocumentStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("ProbeDocumentActivity", mock.Anything, mock.Anything).
		Return(activities.ProbeDocumentOutput{PageCount: 12, PageWidth: 612, PageHeight: 792}, nil)
	env.OnActivity("RecordGeometryActivity", mock.Anything, activities.RecordGeometryInput{DocumentID: "doc123", PageCount: 12, PageWidth: 612, PageHeight: 792}).
		Return(nil)
	env.OnActivity("ResolveOutlineActivity", mock.Anything, mock.Anything).
		Return(activities.ResolveOutlineOutput{Count: 7}, nil)
	env.OnActivity("ExtractTextActivity", mock.Anything, mock.Anything).
		Return(activities.ExtractTextOutput{Text: "body text"}, nil)
	env.OnActivity("WriteDocumentArtifactsActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(DocumentIngestWorkflow, DocumentIngestInput{DocumentPath: "/tmp/d.pdf", Filename: "d.pdf"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "ready", out)
}

func TestDocumentIngestWorkflowCorruptFailsGracefully(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentIngestWorkflow)
	registerIngestActivities(env)

	env.OnActivity("ComputeDocumentIDActivity", mock.Anything, mock.Anything).
		Return(activities.ComputeDocumentIDOutput{DocumentID: "doc123"}, nil)
	env.OnActivity("UpdateDocumentStatusActivity", mock.Anything, mock.Anything).Return(nil)
	probeAttempts := 0
	env.OnActivity("ProbeDocumentActivity", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { probeAttempts++ }).
		Return(activities.ProbeDocumentOutput{}, temporal.NewNonRetryableApplicationError(
			"document cannot be parsed", activities.ErrTypeDocumentCorrupt, util.ErrDocumentCorrupt))

	env.ExecuteWorkflow(DocumentIngestWorkflow, DocumentIngestInput{DocumentPath: "/tmp/d.pdf", Filename: "d.pdf"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "failed", out)

	// a file that cannot be parsed is failed on the first attempt
	require.Equal(t, 1, probeAttempts)
}

func TestDocumentIngestWorkflowNoTextStillReady(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentIngestWorkflow)
	registerIngestActivities(env)

	env.OnActivity("ComputeDocumentIDActivity", mock.Anything, mock.Anything).
		Return(activities.ComputeDocumentIDOutput{DocumentID: "doc123"}, nil)
	env.OnActivity("UpdateDocumentStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("ProbeDocumentActivity", mock.Anything, mock.Anything).
		Return(activities.ProbeDocumentOutput{PageCount: 3, PageWidth: 612, PageHeight: 792}, nil)
	env.OnActivity("RecordGeometryActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("ResolveOutlineActivity", mock.Anything, mock.Anything).
		Return(activities.ResolveOutlineOutput{}, nil)
	extractAttempts := 0
	env.OnActivity("ExtractTextActivity", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { extractAttempts++ }).
		Return(activities.ExtractTextOutput{}, temporal.NewNonRetryableApplicationError(
			util.ErrNoExtractableText.Error(), activities.ErrTypeNoExtractableText, util.ErrNoExtractableText))
	env.OnActivity("WriteDocumentArtifactsActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(DocumentIngestWorkflow, DocumentIngestInput{DocumentPath: "/tmp/scan.pdf", Filename: "scan.pdf"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "ready", out)

	// a text-free document is tolerated without retrying the extraction
	require.Equal(t, 1, extractAttempts)
}
