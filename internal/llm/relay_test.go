package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oyasumi/internal/history"
)

type fakeChatter struct {
	reply    string
	url      string
	err      error
	gotTurns []history.Turn
}

func (f *fakeChatter) Complete(_ context.Context, turns []history.Turn) (string, error) {
	f.gotTurns = turns
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeChatter) Paint(_ context.Context, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func TestChat(t *testing.T) {
	store := history.NewStore()
	chatter := &fakeChatter{reply: "hello!"}
	relay := NewRelay(chatter, store)

	reply, err := relay.Chat(context.Background(), "k", history.RoleUser, "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello!", reply)

	// The request must carry the new turn.
	require.Len(t, chatter.gotTurns, 1)
	assert.Equal(t, history.Turn{Role: history.RoleUser, Content: "hi"}, chatter.gotTurns[0])

	// Both sides of the exchange are committed.
	assert.Equal(t, []history.Turn{
		{Role: history.RoleUser, Content: "hi"},
		{Role: history.RoleAssistant, Content: "hello!"},
	}, store.Get("k"))
}

func TestChatCarriesTheWholeConversation(t *testing.T) {
	store := history.NewStore()
	store.Append("k", history.RoleSystem, "you are terse")
	store.Append("k", history.RoleUser, "hi")
	store.Append("k", history.RoleAssistant, "yo")
	chatter := &fakeChatter{reply: "still here"}
	relay := NewRelay(chatter, store)

	_, err := relay.Chat(context.Background(), "k", history.RoleUser, "again")
	require.NoError(t, err)
	require.Len(t, chatter.gotTurns, 4)
	assert.Equal(t, "again", chatter.gotTurns[3].Content)
	assert.Equal(t, 5, store.Len("k"))
}

func TestChatFailureLeavesHistoryUntouched(t *testing.T) {
	store := history.NewStore()
	chatter := &fakeChatter{err: errors.New("completion backend down")}
	relay := NewRelay(chatter, store)

	reply, err := relay.Chat(context.Background(), "k", history.RoleUser, "hi")
	assert.Error(t, err)
	assert.Equal(t, Apology, reply)
	assert.Empty(t, store.Get("k"), "no partial turn may be appended")
}

func TestImage(t *testing.T) {
	store := history.NewStore()
	chatter := &fakeChatter{url: "https://img.example/1.png"}
	relay := NewRelay(chatter, store)

	url, err := relay.Image(context.Background(), "a cat")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/1.png", url)
	assert.Empty(t, store.Get("k"), "image prompts are not recorded")
}

func TestImageFailure(t *testing.T) {
	relay := NewRelay(&fakeChatter{err: errors.New("quota exceeded")}, history.NewStore())

	reply, err := relay.Image(context.Background(), "a cat")
	assert.Error(t, err)
	assert.Equal(t, Apology, reply)
}
