package model

// File is a document selected for translation
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the length of the file in bytes
func (f *File) Size() int64 {
	return int64(len(f.Data))
}

// UploadAcceptedResponse represents the response for POST /api/upload
type UploadAcceptedResponse struct {
	SessionID string `json:"sessionId"`
	RequestID string `json:"requestId"`
	View      View   `json:"view"`
}
