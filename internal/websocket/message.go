package websocket

import (
	"encoding/json"

	"github.com/isdelr/creatives/internal/models"
)

// NewUserUpdatedMessage tells a client its user record changed server-side.
func NewUserUpdatedMessage(userID string) []byte {
	return encode(models.PushEvent{Type: models.EventUserUpdated, UserID: userID})
}

// NewErrorMessage wraps an error for delivery to a client.
func NewErrorMessage(msg string) []byte {
	return encode(models.PushEvent{Type: models.EventError, Message: msg})
}

func encode(ev models.PushEvent) []byte {
	b, _ := json.Marshal(ev)
	return b
}
