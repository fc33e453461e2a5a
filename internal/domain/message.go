// Package domain contains core domain types for HelsBotje GPT.
package domain

import (
	"github.com/google/uuid"
)

// Sender identifies who authored a chat message.
type Sender string

const (
	// SenderUser marks a message typed by the person chatting.
	SenderUser Sender = "user"
	// SenderBot marks a message produced by HelsBotje.
	SenderBot Sender = "bot"
)

// Message is a single entry in a conversation. Messages are never mutated
// after creation.
type Message struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Sender Sender `json:"sender"`
}

// NewMessage creates a message with a fresh unique ID.
func NewMessage(sender Sender, text string) Message {
	return Message{
		ID:     uuid.NewString(),
		Text:   text,
		Sender: sender,
	}
}

// IsUser returns true if the message was authored by the user.
func (m Message) IsUser() bool {
	return m.Sender == SenderUser
}
