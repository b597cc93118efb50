package llm

import (
	"context"

	"oyasumi/internal/history"
)

// Apology is what the user sees instead of a reply when the external
// call fails.
const Apology = "Sorry, I got an error talking to the language model. Please try again later."

// Relay glues the conversation history store to the completion API.
type Relay struct {
	chatter Chatter
	store   *history.Store
}

func NewRelay(chatter Chatter, store *history.Store) *Relay {
	return &Relay{chatter: chatter, store: store}
}

// Chat sends the conversation plus the new turn to the completion API
// and returns the text to post back to the channel. The new turn and
// the reply are committed to the history only if the call succeeds;
// on failure the history is exactly as it was, the returned text is
// Apology, and the error is reported for logging.
func (r *Relay) Chat(ctx context.Context, key, role, text string) (string, error) {
	turns := append(r.store.Get(key), history.Turn{Role: role, Content: text})
	reply, err := r.chatter.Complete(ctx, turns)
	if err != nil {
		return Apology, err
	}
	r.store.Append(key, role, text)
	r.store.Append(key, history.RoleAssistant, reply)
	return reply, nil
}

// Image generates an image for the prompt and returns its URL. The
// exchange is not recorded in the conversation history.
func (r *Relay) Image(ctx context.Context, prompt string) (string, error) {
	url, err := r.chatter.Paint(ctx, prompt)
	if err != nil {
		return Apology, err
	}
	return url, nil
}
