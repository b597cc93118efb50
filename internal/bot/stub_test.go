package bot

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// stubSession records every Discord call the bots make.
type stubSession struct {
	mu       sync.Mutex
	sent     []sentMessage
	moved    []string
	typing   []string
	statuses []string
	sendErr  error
	moveErr  map[string]error
}

type sentMessage struct {
	channelID string
	content   string
}

func newStubSession() *stubSession {
	return &stubSession{moveErr: make(map[string]error)}
}

func (s *stubSession) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	s.sent = append(s.sent, sentMessage{channelID: channelID, content: content})
	return &discordgo.Message{Content: content, ChannelID: channelID}, nil
}

func (s *stubSession) ChannelTyping(channelID string, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typing = append(s.typing, channelID)
	return nil
}

func (s *stubSession) GuildMemberMove(guildID string, userID string, channelID *string, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.moveErr[userID]; err != nil {
		return err
	}
	if channelID == nil {
		s.moved = append(s.moved, userID)
	}
	return nil
}

func (s *stubSession) UpdateStatusComplex(usd discordgo.UpdateStatusData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, usd.Status)
	return nil
}

func (s *stubSession) sentContents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	contents := make([]string, len(s.sent))
	for i, m := range s.sent {
		contents[i] = m.content
	}
	return contents
}

func (s *stubSession) movedUsers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.moved...)
}
