package bot

import (
	"context"
	"math/rand"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"oyasumi/internal/common"
	"oyasumi/internal/config"
)

// What the god of illustration tells procrastinating artists.
var encouragements = []string{
	"つべこべ言わずに絵描け",
	"お前がそうやって御託を並べている間にも神絵師は努力している",
	"今日は休め",
	"左右反転をこまめにしろ",
	"色塗って誤魔化す前にちゃんと線画描け",
}

const illustratorCall = "ワイが神絵師や！"

// Illustrator nags a role of artists once a day and talks back to
// anyone who mentions it.
type Illustrator struct {
	cfg   config.Illustrator
	clock common.Clock
	gate  *common.MinuteGate
	self  *discordgo.User
	// pick is swappable in tests; defaults to a uniform choice.
	pick func(n int) int
}

func NewIllustrator(cfg config.Illustrator, clock common.Clock) *Illustrator {
	return &Illustrator{
		cfg:   cfg,
		clock: clock,
		gate:  common.NewMinuteGate(),
		pick:  rand.Intn,
	}
}

// Run connects to Discord and blocks until the process is interrupted.
func (b *Illustrator) Run() error {
	attach := func(discord *discordgo.Session) {
		discord.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
			b.self = r.User
			b.Ready(s, s.State.Guilds)
		})
		discord.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
			b.HandleMessage(s, m.Message)
		})
	}
	watch := func(ctx context.Context, discord *discordgo.Session) {
		b.Watch(discord, discord.State.Guilds)
	}
	return serve(b.cfg.Token, attach, watch, 30*time.Second)
}

// Ready greets every guild's notify channel and goes online.
func (b *Illustrator) Ready(s Session, guilds []*discordgo.Guild) {
	lg := log.With().Str("bot", "illustrator").Logger()
	setPresence(s, lg, discordgo.StatusOnline)
	for _, guild := range guilds {
		channel, err := findChannel(guild, b.cfg.NotifyChannelName)
		if err != nil {
			lg.Info().Str("guild", guild.ID).Msg("notify channel not found, skipping greeting")
			continue
		}
		send(s, lg, channel.ID, readyHello)
	}
}

// HandleMessage replies to a mention with a random encouragement.
func (b *Illustrator) HandleMessage(s Session, m *discordgo.Message) {
	if b.self == nil || m.Author == nil || m.Author.Bot {
		return
	}
	if !mentionsUser(m.Mentions, b.self.ID) {
		return
	}
	lg := log.With().
		Str("bot", "illustrator").
		Str("invocation", uuid.NewString()).
		Logger()
	text := "<@" + m.Author.ID + ">\n" + encouragements[b.pick(len(encouragements))]
	send(s, lg, m.ChannelID, text)
}

// Watch posts the daily call to arms when the clock reaches the
// configured begin time.
func (b *Illustrator) Watch(s Session, guilds []*discordgo.Guild) {
	now := b.clock.Now()
	if common.HHMM(now) != b.cfg.BeginTime {
		return
	}
	if !b.gate.Allow("begin", now) {
		return
	}
	lg := log.With().Str("bot", "illustrator").Logger()
	lg.Info().Str("time", b.cfg.BeginTime).Msg("posting the daily call")

	for _, guild := range guilds {
		channel, err := findChannel(guild, b.cfg.NotifyChannelName)
		if err != nil {
			lg.Error().Err(err).Str("guild", guild.ID).Msg("notify channel not found")
			continue
		}
		role, err := findRole(guild, b.cfg.RoleName)
		if err != nil {
			lg.Error().Err(err).Str("guild", guild.ID).Msg("role not found")
			continue
		}
		text := "<@&" + role.ID + ">\n" + illustratorCall
		send(s, lg, channel.ID, text)
	}
}
