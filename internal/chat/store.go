// Package chat holds the in-memory conversation state shared between the
// capture layer and the UI.
package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"voxchat/internal/domain"
)

// Store is an append-only message list plus the recording flag.
type Store struct {
	mu        sync.Mutex
	messages  []domain.ChatMessage
	recording bool
}

func NewStore() *Store {
	return &Store{}
}

// Append adds a message, filling in ID and timestamp when absent, and
// returns the stored value.
func (s *Store) Append(msg domain.ChatMessage) domain.ChatMessage {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg
}

// Messages returns a snapshot of the conversation in append order.
func (s *Store) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) SetRecording(recording bool) {
	s.mu.Lock()
	s.recording = recording
	s.mu.Unlock()
}

func (s *Store) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// Clear empties the conversation.
func (s *Store) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
}
