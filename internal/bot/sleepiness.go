package bot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"oyasumi/internal/common"
	"oyasumi/internal/config"
	"oyasumi/internal/schedule"
)

// defaultExecutionTimes is the curfew ladder a newly seen guild
// starts with.
var defaultExecutionTimes = []string{
	"00:00",
	"00:30",
	"01:00",
	"01:30",
	"02:00",
	"02:30",
	"03:00",
	"03:30",
	"04:00",
	"05:00",
	"06:00",
}

const (
	goodNight   = "good night."
	goodMorning = "good morning everyone!"
	readyHello  = "Hello everyone! I'm ready."
)

const sleepinessHelp = "```\n" + `usage: @sleepiness <command> [<args>]
---
run                   force the curfew right now.
add <HH:MM>           add a time to the execution time list. e.g. "00:45".
remove <HH:MM>        remove a time from the execution time list. e.g. "01:00".
exclude <%A> <HH:MM>  add a weekday/time to the exclude list. e.g. "Sunday 01:00".
include <%A> <HH:MM>  remove a weekday/time from the exclude list.
list                  show the execution and exclude time lists.
sleep <minutes>       suppress the curfew for a while (1-120).
awake                 wake up from sleep mode.
status                report whether the curfew is running or sleeping.
help                  show this message.
` + "```"

var sleepinessTable = Table{
	Verbs: map[string]VerbSpec{
		"run":     {},
		"add":     {Missing: []string{"time is required."}},
		"remove":  {Missing: []string{"time is required."}},
		"exclude": {Missing: []string{"weekday is required.", "time is required."}},
		"include": {Missing: []string{"weekday is required.", "time is required."}},
		"list":    {},
		"sleep":   {Missing: []string{"minutes is required."}},
		"awake":   {},
		"status":  {},
		"help":    {},
	},
}

// Sleepiness is the voice-channel curfew bot: at the scheduled minutes
// it warns everyone in a voice channel, waits out a grace period and
// then disconnects whoever is still there.
type Sleepiness struct {
	cfg   config.Sleepiness
	clock common.Clock
	rules *schedule.Store
	gate  *common.MinuteGate
	grace time.Duration
	self  *discordgo.User
}

func NewSleepiness(cfg config.Sleepiness, clock common.Clock, rules *schedule.Store) *Sleepiness {
	return &Sleepiness{
		cfg:   cfg,
		clock: clock,
		rules: rules,
		gate:  common.NewMinuteGate(),
		grace: time.Duration(cfg.GracePeriodSeconds) * time.Second,
	}
}

// Run connects to Discord and blocks until the process is interrupted.
func (b *Sleepiness) Run() error {
	attach := func(discord *discordgo.Session) {
		discord.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
			b.self = r.User
			b.Ready(s, s.State.Guilds)
		})
		discord.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
			guild, err := s.State.Guild(m.GuildID)
			if err != nil {
				return
			}
			b.HandleMessage(s, guild, m.Message)
		})
	}
	watch := func(ctx context.Context, discord *discordgo.Session) {
		b.Watch(ctx, discord, discord.State.Guilds)
	}
	return serve(b.cfg.Token, attach, watch, time.Duration(b.cfg.WatchSeconds)*time.Second)
}

// Ready greets every guild's notify channel and goes online.
func (b *Sleepiness) Ready(s Session, guilds []*discordgo.Guild) {
	lg := log.With().Str("bot", "sleepiness").Logger()
	setPresence(s, lg, discordgo.StatusOnline)
	for _, guild := range guilds {
		b.rules.Seed(guild.ID, defaultExecutionTimes)
		channel, err := findChannel(guild, b.cfg.NotifyChannelName)
		if err != nil {
			lg.Info().Str("guild", guild.ID).Msg("notify channel not found, skipping greeting")
			continue
		}
		send(s, lg, channel.ID, readyHello)
	}
}

// Watch runs once per tick: it wakes expired snoozes, evaluates every
// guild's schedule and starts the curfew where it fires. The minute
// gate keeps several ticks inside one matching minute from firing
// more than once.
func (b *Sleepiness) Watch(ctx context.Context, s Session, guilds []*discordgo.Guild) {
	now := b.clock.Now()
	lg := log.With().Str("bot", "sleepiness").Logger()
	lg.Debug().Time("now", now).Msg("watch tick")

	for _, guild := range guilds {
		b.rules.Seed(guild.ID, defaultExecutionTimes)

		if b.rules.ExpireSnooze(guild.ID, now) {
			lg.Info().Str("guild", guild.ID).Msg("snooze expired")
			b.announceWake(s, lg, guild)
		}

		if b.rules.Decide(guild.ID, now) == schedule.Skip {
			continue
		}
		if !b.gate.Allow(guild.ID, now) {
			continue
		}
		for _, vc := range voiceChannels(guild) {
			b.curfew(ctx, s, guild, vc, now, true)
		}
	}
}

// curfew is the disconnect flow for one voice channel: warn, wait out
// the grace period, re-check the rules and then act. A failure on one
// member never stops the loop, and a failure in one guild never
// reaches another.
func (b *Sleepiness) curfew(ctx context.Context, s Session, guild *discordgo.Guild, vc *discordgo.Channel, now time.Time, scheduled bool) {
	lg := log.With().
		Str("bot", "sleepiness").
		Str("guild", guild.ID).
		Str("voice_channel", vc.Name).
		Logger()

	if slices.Contains(b.cfg.IgnoreChannelNames, vc.Name) {
		lg.Info().Msg("ignored voice channel")
		return
	}
	notify, err := findChannel(guild, b.cfg.NotifyChannelName)
	if err != nil {
		lg.Info().Err(err).Msg("notify channel not found, skipping guild")
		return
	}
	users := voiceOccupants(guild, vc.ID)
	if len(users) == 0 {
		lg.Debug().Msg("voice channel is empty")
		return
	}
	for _, user := range users {
		lg.Debug().Str("member", displayName(guild, user)).Msg("member connected")
	}

	if err := Notify(s, notify.ID, goodNight, users); err != nil {
		lg.Error().Err(err).Msg("could not send the warning, aborting curfew")
		return
	}

	// Grace period between the warning and the disconnect.
	select {
	case <-ctx.Done():
		return
	case <-time.After(b.grace):
	}

	// The rules may have changed while we waited: a snooze or a fresh
	// exclusion issued during the grace period calls the curfew off.
	if scheduled {
		switch b.rules.Decide(guild.ID, now) {
		case schedule.Skip:
			lg.Info().Msg("rules changed during the grace period, curfew called off")
			return
		case schedule.FireExcluded:
			b.sendExcluded(s, lg, notify.ID, now, users)
			return
		}
	} else if b.excludedAt(guild.ID, now) {
		b.sendExcluded(s, lg, notify.ID, now, users)
		return
	}

	for _, user := range users {
		if err := s.GuildMemberMove(guild.ID, user.ID, nil); err != nil {
			lg.Error().Err(err).Str("member", displayName(guild, user)).Msg("could not disconnect member")
			continue
		}
		lg.Info().Str("member", displayName(guild, user)).Msg("member disconnected")
	}
}

// excludedAt checks the exclude list alone, bypassing the snooze and
// execution-time checks; used by the manual "run" verb.
func (b *Sleepiness) excludedAt(tenant string, now time.Time) bool {
	_, exclusions := b.rules.List(tenant)
	return slices.Contains(exclusions, schedule.Exclusion{
		Weekday: common.Weekday(now),
		HHMM:    common.HHMM(now),
	})
}

func (b *Sleepiness) sendExcluded(s Session, lg zerolog.Logger, channelID string, now time.Time, users []*discordgo.User) {
	text := fmt.Sprintf("It's %s!\nHave a nice day!", common.Weekday(now))
	if err := Notify(s, channelID, text, users); err != nil {
		lg.Error().Err(err).Msg("could not send the excluded-day message")
	}
}

func (b *Sleepiness) announceWake(s Session, lg zerolog.Logger, guild *discordgo.Guild) {
	setPresence(s, lg, discordgo.StatusOnline)
	channel, err := findChannel(guild, b.cfg.NotifyChannelName)
	if err != nil {
		lg.Info().Str("guild", guild.ID).Msg("notify channel not found, skipping wake message")
		return
	}
	send(s, lg, channel.ID, goodMorning)
}

// HandleMessage dispatches one inbound message addressed to the bot.
func (b *Sleepiness) HandleMessage(s Session, guild *discordgo.Guild, m *discordgo.Message) {
	if b.self == nil || m.Author == nil || m.Author.Bot {
		return
	}
	if !mentionsUser(m.Mentions, b.self.ID) {
		return
	}
	if guild == nil {
		return
	}

	lg := log.With().
		Str("bot", "sleepiness").
		Str("invocation", uuid.NewString()).
		Str("guild", guild.ID).
		Logger()
	lg.Debug().Str("content", m.Content).Msg("received command")

	result := Parse(m.Content, sleepinessTable)
	switch result.ID {
	case PARSE_MISSING_ARGS:
		send(s, lg, m.ChannelID, result.Error)
		return
	case PARSE_NO_VERB, PARSE_VERB_NOT_RECOGNISED:
		send(s, lg, m.ChannelID, sleepinessHelp)
		return
	}

	now := b.clock.Now()
	cmd := result.Command
	switch cmd.Verb {
	case "run":
		for _, vc := range voiceChannels(guild) {
			b.curfew(context.Background(), s, guild, vc, now, false)
		}
	case "add":
		b.doAdd(s, lg, guild.ID, m.ChannelID, cmd.Args[0])
	case "remove":
		b.doRemove(s, lg, guild.ID, m.ChannelID, cmd.Args[0])
	case "exclude":
		b.doExclude(s, lg, guild.ID, m.ChannelID, cmd.Args[0], cmd.Args[1])
	case "include":
		b.doInclude(s, lg, guild.ID, m.ChannelID, cmd.Args[0], cmd.Args[1])
	case "list":
		b.doList(s, lg, guild.ID, m.ChannelID)
	case "sleep":
		b.doSleep(s, lg, guild.ID, m.ChannelID, cmd.Args[0], now)
	case "awake":
		b.doAwake(s, lg, guild, m.ChannelID)
	case "status":
		b.doStatus(s, lg, guild.ID, m.ChannelID)
	default:
		send(s, lg, m.ChannelID, sleepinessHelp)
	}
}

func (b *Sleepiness) doAdd(s Session, lg zerolog.Logger, tenant, channelID, hhmm string) {
	switch err := b.rules.AddTime(tenant, hhmm); {
	case errors.Is(err, schedule.ErrInvalidArgument):
		send(s, lg, channelID, `time must look like HH:MM. e.g. "01:30".`)
	case errors.Is(err, schedule.ErrAlreadyExists):
		send(s, lg, channelID, "time is already in the execution time list.")
	default:
		send(s, lg, channelID, "time has been added to the execution time list.")
	}
}

func (b *Sleepiness) doRemove(s Session, lg zerolog.Logger, tenant, channelID, hhmm string) {
	if err := b.rules.RemoveTime(tenant, hhmm); err != nil {
		send(s, lg, channelID, "time was not found in the execution time list.")
		return
	}
	send(s, lg, channelID, "time has been removed from the execution time list.")
}

func (b *Sleepiness) doExclude(s Session, lg zerolog.Logger, tenant, channelID, weekday, hhmm string) {
	switch err := b.rules.AddExclusion(tenant, weekday, hhmm); {
	case errors.Is(err, schedule.ErrInvalidArgument):
		send(s, lg, channelID, `expected an English weekday and an HH:MM time. e.g. "Sunday 01:00".`)
	case errors.Is(err, schedule.ErrAlreadyExists):
		send(s, lg, channelID, "exclude time is already in the exclude time list.")
	default:
		send(s, lg, channelID, "exclude time has been added to the exclude time list.")
	}
}

func (b *Sleepiness) doInclude(s Session, lg zerolog.Logger, tenant, channelID, weekday, hhmm string) {
	if err := b.rules.RemoveExclusion(tenant, weekday, hhmm); err != nil {
		send(s, lg, channelID, "exclude time was not found in the exclude time list.")
		return
	}
	send(s, lg, channelID, "exclude time has been removed from the exclude time list.")
}

func (b *Sleepiness) doList(s Session, lg zerolog.Logger, tenant, channelID string) {
	times, exclusions := b.rules.List(tenant)
	var text strings.Builder
	if len(times) > 0 {
		text.WriteString("execute:\n")
		for _, t := range times {
			text.WriteString("\t" + t + "\n")
		}
	}
	if len(exclusions) > 0 {
		text.WriteString("exclude:\n")
		for _, e := range exclusions {
			text.WriteString("\t" + e.String() + "\n")
		}
	}
	if text.Len() == 0 {
		text.WriteString("both time lists are empty.")
	}
	send(s, lg, channelID, text.String())
}

func (b *Sleepiness) doSleep(s Session, lg zerolog.Logger, tenant, channelID, arg string, now time.Time) {
	minutes, err := strconv.Atoi(arg)
	if err != nil {
		send(s, lg, channelID, "minutes must be a number.")
		return
	}
	until, err := b.rules.Snooze(tenant, minutes, now)
	if err != nil {
		send(s, lg, channelID, fmt.Sprintf("minutes must be between %d and %d.",
			schedule.MinSnoozeMinutes, schedule.MaxSnoozeMinutes))
		return
	}
	send(s, lg, channelID, fmt.Sprintf("start sleeping %d minutes. until %s.",
		minutes, until.Format(time.RFC3339)))
	setPresence(s, lg, discordgo.StatusIdle)
}

func (b *Sleepiness) doAwake(s Session, lg zerolog.Logger, guild *discordgo.Guild, channelID string) {
	if !b.rules.Wake(guild.ID) {
		return
	}
	send(s, lg, channelID, goodMorning)
	setPresence(s, lg, discordgo.StatusOnline)
}

func (b *Sleepiness) doStatus(s Session, lg zerolog.Logger, tenant, channelID string) {
	status := b.rules.Status(tenant)
	if status.Sleeping {
		send(s, lg, channelID, fmt.Sprintf("sleepiness is sleeping until %s.",
			status.Until.Format(time.RFC3339)))
		return
	}
	send(s, lg, channelID, "sleepiness is running.")
}
