package model

// View is the visible state of the progress UI
type View struct {
	Status         JobStatus     `json:"status"`
	Progress       int           `json:"progress"`
	Message        string        `json:"message"`
	SpinnerVisible bool          `json:"spinnerVisible"`
	TimerVisible   bool          `json:"timerVisible"`
	ElapsedSeconds int           `json:"elapsedSeconds"`
	Download       *DownloadLink `json:"download,omitempty"`
}

// DownloadLink is the user-activatable download affordance
type DownloadLink struct {
	Filename string `json:"filename"`
	Href     string `json:"href"`
	Label    string `json:"label"`
}

// Artifact is the translated text materialized as a plain-text file
type Artifact struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"-"`
}
