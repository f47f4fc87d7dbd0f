package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.ComputeDocumentIDActivity)
	w.RegisterActivity(a.ProbeDocumentActivity)
	w.RegisterActivity(a.RecordGeometryActivity)
	w.RegisterActivity(a.ResolveOutlineActivity)
	w.RegisterActivity(a.ExtractTextActivity)
	w.RegisterActivity(a.WriteDocumentArtifactsActivity)
	w.RegisterActivity(a.UpdateDocumentStatusActivity)
}
