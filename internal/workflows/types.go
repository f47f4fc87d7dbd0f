package workflows

type DocumentIngestInput struct {
	DocumentPath string `json:"document_path"`
	Filename     string `json:"filename"`
	Title        string `json:"title,omitempty"`
	Subject      string `json:"subject,omitempty"`
}

type DocumentIngestProgress struct {
	DocumentID   string            `json:"document_id"`
	CurrentStep  string            `json:"current_step"`
	Status       string            `json:"status"`
	Steps        map[string]string `json:"steps"`
	OutlineCount int               `json:"outline_count"`
	PageCount    int               `json:"page_count"`
	FailReason   string            `json:"fail_reason,omitempty"`
}
