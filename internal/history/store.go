// Package history keeps per-conversation chat transcripts for the
// language-model relay. Everything lives in memory and is gone on
// restart.
package history

import (
	"slices"
	"sync"
)

// Chat roles, matching what the completion API expects.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one role-tagged message in a conversation.
type Turn struct {
	Role    string
	Content string
}

// Key builds the conversation key for a guild channel. Direct messages
// have no guild, so the channel id stands alone.
func Key(guildID, channelID string) string {
	if guildID == "" {
		return channelID
	}
	return guildID + "-" + channelID
}

// Store holds the ordered turns of every conversation, keyed by Key.
type Store struct {
	mu    sync.Mutex
	turns map[string][]Turn
}

func NewStore() *Store {
	return &Store{turns: make(map[string][]Turn)}
}

// Append adds a turn to the end of a conversation, creating it lazily.
func (s *Store) Append(key, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[key] = append(s.turns[key], Turn{Role: role, Content: content})
}

// Get returns a copy of the conversation's turns, oldest first.
// An unknown key yields an empty slice.
func (s *Store) Get(key string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.turns[key])
}

// Len returns the number of turns stored for key.
func (s *Store) Len(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns[key])
}

// Reset drops a single conversation.
func (s *Store) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, key)
}

// ResetAll drops every conversation. Used by the daily sweep.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = make(map[string][]Turn)
}
