package activities

import "scribe/internal/models"

type ComputeDocumentIDInput struct {
	DocumentPath string `json:"document_path"`
}

type ComputeDocumentIDOutput struct {
	DocumentID string `json:"document_id"`
}

type ProbeDocumentInput struct {
	DocumentPath string `json:"document_path"`
}

type ProbeDocumentOutput struct {
	PageCount  int     `json:"page_count"`
	PageWidth  float64 `json:"page_width"`
	PageHeight float64 `json:"page_height"`
}

type RecordGeometryInput struct {
	DocumentID string  `json:"document_id"`
	PageCount  int     `json:"page_count"`
	PageWidth  float64 `json:"page_width"`
	PageHeight float64 `json:"page_height"`
}

type ResolveOutlineInput struct {
	DocumentID   string `json:"document_id"`
	DocumentPath string `json:"document_path"`
}

type ResolveOutlineOutput struct {
	Entries []models.OutlineEntry `json:"entries"`
	Count   int                   `json:"count"`
}

type ExtractTextInput struct {
	DocumentPath string `json:"document_path"`
}

type ExtractTextOutput struct {
	Text string `json:"text"`
}

type WriteDocumentArtifactsInput struct {
	DocumentID string         `json:"document_id"`
	Metadata   map[string]any `json:"metadata"`
	Text       string         `json:"text,omitempty"`
}

type UpdateDocumentStatusInput struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Title      string `json:"title,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Status     string `json:"status"`
	FailReason string `json:"fail_reason,omitempty"`
}
