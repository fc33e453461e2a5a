// Package chat implements the HelsBotje chat client: the visible
// conversation, the idle/waiting state machine and the talking indicator.
package chat

import (
	"sync"

	"github.com/helsbotje/helsbotje-gpt/internal/domain"
)

// Conversation is an append-only, ordered list of messages.
type Conversation struct {
	mu       sync.RWMutex
	messages []domain.Message
}

// Append adds a message at the end of the conversation.
func (c *Conversation) Append(m domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, m)
}

// Messages returns a copy of the conversation in display order.
func (c *Conversation) Messages() []domain.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}
