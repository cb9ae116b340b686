package model

// Job status
type JobStatus string

const (
	JobStatusUnset      JobStatus = ""
	JobStatusUploading  JobStatus = "UPLOADING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

var ValidJobStatuses = []JobStatus{
	JobStatusUploading, JobStatusProcessing, JobStatusCompleted, JobStatusFailed,
}

// IsTerminal reports whether the status ends polling.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Content types
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeText = "text/plain; charset=utf-8"
)

// File extensions swapped when naming the translated artifact
const (
	ExtensionPDF  = ".pdf"
	ExtensionText = ".txt"
)
