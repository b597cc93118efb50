package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"oyasumi/internal/common"
	"oyasumi/internal/config"
	"oyasumi/internal/history"
	"oyasumi/internal/llm"
)

const relayHelp = "```\n" + `usage: @relay <command> [<args>]
---
<message>         send a user message to the language model.
system <message>  send a system message.
image <prompt>    generate an image and reply with its URL.
history           show the conversation so far.
reset             forget the conversation in this channel.
help              show this message.
` + "```"

var relayTable = Table{
	Verbs: map[string]VerbSpec{
		"system":  {Missing: []string{"message is required."}, Remainder: true},
		"image":   {Missing: []string{"prompt is required."}, Remainder: true},
		"history": {},
		"reset":   {},
		"help":    {},
	},
	FreeText: "chat",
}

// RelayBot forwards channel conversations to the completion API and
// wipes every conversation once a day.
type RelayBot struct {
	cfg   config.Relay
	clock common.Clock
	store *history.Store
	relay *llm.Relay
	gate  *common.MinuteGate
	self  *discordgo.User
}

func NewRelayBot(cfg config.Relay, clock common.Clock, store *history.Store, relay *llm.Relay) *RelayBot {
	return &RelayBot{
		cfg:   cfg,
		clock: clock,
		store: store,
		relay: relay,
		gate:  common.NewMinuteGate(),
	}
}

// Run connects to Discord and blocks until the process is interrupted.
func (b *RelayBot) Run() error {
	attach := func(discord *discordgo.Session) {
		discord.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
			b.self = r.User
			lg := log.With().Str("bot", "relay").Logger()
			setPresence(s, lg, discordgo.StatusOnline)
		})
		discord.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
			guild, _ := s.State.Guild(m.GuildID)
			b.HandleMessage(context.Background(), s, guild, m.Message)
		})
	}
	watch := func(ctx context.Context, discord *discordgo.Session) {
		b.Watch()
	}
	return serve(b.cfg.Token, attach, watch, 30*time.Second)
}

// Watch wipes every conversation when the clock reaches the reset
// hour, one global sweep per day.
func (b *RelayBot) Watch() {
	now := b.clock.Now()
	if common.HHMM(now) != fmt.Sprintf("%02d:00", b.cfg.HistoryResetHour) {
		return
	}
	if !b.gate.Allow("sweep", now) {
		return
	}
	b.store.ResetAll()
	log.Info().Str("bot", "relay").Int("hour", b.cfg.HistoryResetHour).Msg("daily history sweep")
}

// addressedToMe reports whether the message mentions the bot, either
// directly or through a role carrying the bot's name.
func (b *RelayBot) addressedToMe(guild *discordgo.Guild, m *discordgo.Message) bool {
	if mentionsUser(m.Mentions, b.self.ID) {
		return true
	}
	return mentionsRoleNamed(m.MentionRoles, guild, b.self.Username)
}

// HandleMessage dispatches one inbound message addressed to the bot.
// guild is nil for direct messages.
func (b *RelayBot) HandleMessage(ctx context.Context, s Session, guild *discordgo.Guild, m *discordgo.Message) {
	if b.self == nil || m.Author == nil || m.Author.Bot {
		return
	}
	if !b.addressedToMe(guild, m) {
		return
	}

	guildID := ""
	if guild != nil {
		guildID = guild.ID
	}
	key := history.Key(guildID, m.ChannelID)
	lg := log.With().
		Str("bot", "relay").
		Str("invocation", uuid.NewString()).
		Str("conversation", key).
		Logger()
	lg.Debug().Str("content", m.Content).Msg("received command")

	result := Parse(m.Content, relayTable)
	switch result.ID {
	case PARSE_MISSING_ARGS:
		send(s, lg, m.ChannelID, result.Error)
		return
	case PARSE_NO_VERB:
		send(s, lg, m.ChannelID, relayHelp)
		return
	}

	cmd := result.Command
	switch cmd.Verb {
	case "chat":
		b.doChat(ctx, s, lg, key, m.ChannelID, history.RoleUser, cmd.Rest)
	case "system":
		b.doChat(ctx, s, lg, key, m.ChannelID, history.RoleSystem, cmd.Rest)
	case "image":
		b.doImage(ctx, s, lg, m.ChannelID, cmd.Rest)
	case "history":
		b.doHistory(s, lg, key, m.ChannelID)
	case "reset":
		b.store.Reset(key)
		send(s, lg, m.ChannelID, "reset history.")
	default:
		send(s, lg, m.ChannelID, relayHelp)
	}
}

func (b *RelayBot) doChat(ctx context.Context, s Session, lg zerolog.Logger, key, channelID, role, text string) {
	if err := s.ChannelTyping(channelID); err != nil {
		lg.Debug().Err(err).Msg("could not start typing indicator")
	}
	reply, err := b.relay.Chat(ctx, key, role, text)
	if err != nil {
		lg.Error().Err(err).Msg("completion call failed")
	}
	send(s, lg, channelID, reply)
}

func (b *RelayBot) doImage(ctx context.Context, s Session, lg zerolog.Logger, channelID, prompt string) {
	if err := s.ChannelTyping(channelID); err != nil {
		lg.Debug().Err(err).Msg("could not start typing indicator")
	}
	url, err := b.relay.Image(ctx, prompt)
	if err != nil {
		lg.Error().Err(err).Msg("image call failed")
	}
	send(s, lg, channelID, url)
}

func (b *RelayBot) doHistory(s Session, lg zerolog.Logger, key, channelID string) {
	turns := b.store.Get(key)
	if len(turns) == 0 {
		send(s, lg, channelID, "histories are empty.")
		return
	}
	var text strings.Builder
	for _, turn := range turns {
		text.WriteString(turn.Role + ": " + turn.Content + "\n")
	}
	send(s, lg, channelID, text.String())
}
