package model

// WebSocket message types
const (
	WSMessageTypeView   = "view"
	WSMessageTypeNotice = "notice"
	WSMessageTypePing   = "ping"
	WSMessageTypePong   = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSViewMessage carries a presenter snapshot
type WSViewMessage struct {
	Type string `json:"type"`
	View View   `json:"view"`
}

// WSNoticeMessage carries a blocking user-facing notice
type WSNoticeMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
