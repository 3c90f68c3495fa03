package models

// Push event types sent over the websocket.
const (
	EventUserUpdated = "user.updated"
	EventError       = "error"
)

// PushEvent is a server-to-client notification delivered over the websocket.
type PushEvent struct {
	Type    string `json:"type"`
	UserID  string `json:"user_id,omitempty"`
	Message string `json:"message,omitempty"`
}
