package models

import (
	"errors"
	"time"
)

// SenderAssistant is the sender of every message produced by the inference API.
// Any other sender value is the username of whoever typed the message.
const SenderAssistant = "assistant"

// ErrUnconfirm is returned when a patch tries to move a confirmed message back
// to unconfirmed.
var ErrUnconfirm = errors.New("confirmed message cannot be unconfirmed")

// Message represents one entry of a chat thread
type Message struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Confirmed bool      `json:"confirmed"`
}

// IsAssistant reports whether the message came from the inference API
func (m Message) IsAssistant() bool {
	return m.Sender == SenderAssistant
}

// Patch holds the fields of a message that may be replaced after creation.
// A nil field is left untouched. Sender is immutable and has no patch field.
type Patch struct {
	Text      *string
	Confirmed *bool
}

// Confirm returns a patch that marks a message as confirmed
func Confirm() Patch {
	confirmed := true
	return Patch{Confirmed: &confirmed}
}

// Apply returns a copy of m with the patch applied
func (p Patch) Apply(m Message) (Message, error) {
	if p.Confirmed != nil {
		if m.Confirmed && !*p.Confirmed {
			return m, ErrUnconfirm
		}
		m.Confirmed = *p.Confirmed
	}
	if p.Text != nil {
		m.Text = *p.Text
	}
	return m, nil
}
