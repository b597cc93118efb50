package bot

import (
	"strings"
)

const (
	PARSE_OK = iota
	PARSE_NO_VERB
	PARSE_VERB_NOT_RECOGNISED
	PARSE_MISSING_ARGS
)

// Command is one parsed bot invocation.
type Command struct {
	Verb string
	Args []string
	// Rest holds everything after the verb, unsplit, for free-text
	// verbs like "system" or a plain chat message.
	Rest string
}

type ParseResult struct {
	ID      int
	Command Command
	// Error is the user-visible message for PARSE_MISSING_ARGS.
	Error string
}

// VerbSpec is one entry of a bot's verb table.
type VerbSpec struct {
	// Missing holds one user-visible error message per required
	// argument position, e.g. {"weekday is required.", "time is required."}.
	// Its length is the minimum argument count.
	Missing []string
	// Remainder routes everything after the verb into Command.Rest
	// instead of token-splitting it.
	Remainder bool
}

// Table is a bot's declarative verb table. FreeText, when non-empty,
// is the verb that text matching no known verb is routed to, with the
// whole text after the mention as Rest.
type Table struct {
	Verbs    map[string]VerbSpec
	FreeText string
}

// Parse splits a mention-prefixed message into a verb and its
// arguments. The first token is the bot mention and is discarded;
// argument counts are validated here, before anything is dispatched.
func Parse(content string, table Table) ParseResult {
	fields := strings.Fields(content)
	if len(fields) < 2 {
		return ParseResult{ID: PARSE_NO_VERB}
	}
	verb := fields[1]
	spec, ok := table.Verbs[verb]
	if !ok {
		if table.FreeText != "" {
			return ParseResult{
				ID:      PARSE_OK,
				Command: Command{Verb: table.FreeText, Rest: restAfter(content, 1)},
			}
		}
		return ParseResult{ID: PARSE_VERB_NOT_RECOGNISED}
	}
	args := fields[2:]
	if len(args) < len(spec.Missing) {
		return ParseResult{ID: PARSE_MISSING_ARGS, Error: spec.Missing[len(args)]}
	}
	cmd := Command{Verb: verb, Args: args}
	if spec.Remainder {
		cmd.Args = nil
		cmd.Rest = restAfter(content, 2)
	}
	return ParseResult{ID: PARSE_OK, Command: cmd}
}

// restAfter returns content with the first n whitespace-separated
// tokens removed, preserving the remainder's internal spacing.
func restAfter(content string, n int) string {
	s := strings.TrimSpace(content)
	for i := 0; i < n; i++ {
		j := strings.IndexAny(s, " \t\n")
		if j < 0 {
			return ""
		}
		s = strings.TrimSpace(s[j:])
	}
	return s
}
