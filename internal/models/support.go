package models

import "time"

// Support interaction types.
const (
	SupportTypeChat = "chat"
	SupportTypeCall = "call"
)

// Support interaction statuses.
const (
	SupportStatusSent      = "sent"
	SupportStatusRequested = "requested"
)

// SupportInteraction is one entry in the patient's support history: either a
// chat message or a call-back request.
type SupportInteraction struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"` // chat, call
	Content   string    `json:"content"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"timestamp"`
}
