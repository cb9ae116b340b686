package model

// UploadDescriptor is the pre-signed upload target returned by generate-url.
type UploadDescriptor struct {
	URL       string `json:"url"`
	RequestID string `json:"request_id"`
}

// DescriptorEnvelope wraps the descriptor. Body holds the descriptor as a
// JSON-encoded string, not as an object.
type DescriptorEnvelope struct {
	Body string `json:"body"`
}

// StatusResponse is the payload of GET /status
type StatusResponse struct {
	Status         JobStatus `json:"status"`
	TranslatedText *string   `json:"translated_text,omitempty"`
}

// Text returns the translated text and whether it is present. An empty
// string counts as absent.
func (r *StatusResponse) Text() (string, bool) {
	if r.TranslatedText == nil || *r.TranslatedText == "" {
		return "", false
	}
	return *r.TranslatedText, true
}
