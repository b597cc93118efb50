package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oyasumi/internal/common"
	"oyasumi/internal/config"
	"oyasumi/internal/schedule"
)

// 2024-01-06 01:00 was a Saturday.
var saturdayCurfew = time.Date(2024, 1, 6, 1, 0, 0, 0, time.UTC)

func testGuild() *discordgo.Guild {
	return &discordgo.Guild{
		ID: "g1",
		Channels: []*discordgo.Channel{
			{ID: "notify", Name: "bed-room", Type: discordgo.ChannelTypeGuildText},
			{ID: "voice", Name: "lounge", Type: discordgo.ChannelTypeGuildVoice},
			{ID: "afk-voice", Name: "afk", Type: discordgo.ChannelTypeGuildVoice},
		},
		Members: []*discordgo.Member{
			{User: &discordgo.User{ID: "u1", Username: "alice"}, Nick: "night-owl"},
			{User: &discordgo.User{ID: "u2", Username: "bob"}},
		},
		VoiceStates: []*discordgo.VoiceState{
			{UserID: "u1", ChannelID: "voice"},
			{UserID: "u2", ChannelID: "voice"},
		},
	}
}

func newTestSleepiness(t *testing.T, now time.Time) (*Sleepiness, *schedule.Store) {
	t.Helper()
	cfg := config.Sleepiness{
		Common:            config.Common{Token: "t"},
		NotifyChannelName: "bed-room",
		WatchSeconds:      30,
	}
	rules := schedule.NewStore()
	b := NewSleepiness(cfg, common.FixedClock(now), rules)
	b.self = &discordgo.User{ID: "bot", Username: "sleepiness"}
	return b, rules
}

func TestWatchFiresAtScheduledMinute(t *testing.T) {
	b, rules := newTestSleepiness(t, saturdayCurfew)
	rules.Seed("g1", nil)
	require.NoError(t, rules.AddTime("g1", "01:00"))

	session := newStubSession()
	b.Watch(context.Background(), session, []*discordgo.Guild{testGuild()})

	contents := session.sentContents()
	require.Len(t, contents, 1)
	assert.Contains(t, contents[0], "<@u1> <@u2>")
	assert.Contains(t, contents[0], goodNight)
	assert.ElementsMatch(t, []string{"u1", "u2"}, session.movedUsers())
}

func TestWatchSkipsOffScheduleMinute(t *testing.T) {
	b, rules := newTestSleepiness(t, saturdayCurfew.Add(7*time.Minute))
	rules.Seed("g1", nil)
	require.NoError(t, rules.AddTime("g1", "01:00"))

	session := newStubSession()
	b.Watch(context.Background(), session, []*discordgo.Guild{testGuild()})

	assert.Empty(t, session.sentContents())
	assert.Empty(t, session.movedUsers())
}

func TestWatchFiresOncePerMinute(t *testing.T) {
	b, rules := newTestSleepiness(t, saturdayCurfew)
	rules.Seed("g1", nil)
	require.NoError(t, rules.AddTime("g1", "01:00"))

	session := newStubSession()
	guilds := []*discordgo.Guild{testGuild()}
	b.Watch(context.Background(), session, guilds)
	b.Watch(context.Background(), session, guilds)

	assert.Len(t, session.sentContents(), 1, "two ticks in one minute are one logical firing")
	assert.Len(t, session.movedUsers(), 2)
}

func TestWatchExcludedWeekday(t *testing.T) {
	b, rules := newTestSleepiness(t, saturdayCurfew)
	rules.Seed("g1", nil)
	require.NoError(t, rules.AddTime("g1", "01:00"))
	require.NoError(t, rules.AddExclusion("g1", "Saturday", "01:00"))

	session := newStubSession()
	b.Watch(context.Background(), session, []*discordgo.Guild{testGuild()})

	contents := session.sentContents()
	require.Len(t, contents, 2, "warning plus the excluded-day message")
	assert.Contains(t, contents[1], "It's Saturday!")
	assert.Empty(t, session.movedUsers(), "nobody is disconnected on an excluded day")
}

func TestWatchHonorsSnooze(t *testing.T) {
	b, rules := newTestSleepiness(t, saturdayCurfew)
	rules.Seed("g1", nil)
	require.NoError(t, rules.AddTime("g1", "01:00"))
	_, err := rules.Snooze("g1", 60, saturdayCurfew.Add(-time.Minute))
	require.NoError(t, err)

	session := newStubSession()
	b.Watch(context.Background(), session, []*discordgo.Guild{testGuild()})

	assert.Empty(t, session.sentContents())
	assert.Empty(t, session.movedUsers())
}

func TestWatchAnnouncesExpiredSnooze(t *testing.T) {
	b, rules := newTestSleepiness(t, saturdayCurfew.Add(10*time.Minute))
	rules.Seed("g1", nil)
	_, err := rules.Snooze("g1", 5, saturdayCurfew)
	require.NoError(t, err)

	session := newStubSession()
	guilds := []*discordgo.Guild{testGuild()}
	b.Watch(context.Background(), session, guilds)
	b.Watch(context.Background(), session, guilds)

	contents := session.sentContents()
	require.Len(t, contents, 1, "the wake-up is announced exactly once")
	assert.Equal(t, goodMorning, contents[0])
}

func TestSnoozeDuringGraceAbortsCurfew(t *testing.T) {
	b, rules := newTestSleepiness(t, saturdayCurfew)
	b.grace = 100 * time.Millisecond
	rules.Seed("g1", nil)
	require.NoError(t, rules.AddTime("g1", "01:00"))

	session := newStubSession()
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Watch(context.Background(), session, []*discordgo.Guild{testGuild()})
	}()

	// Let the warning go out, then snooze inside the grace window.
	require.Eventually(t, func() bool {
		return len(session.sentContents()) == 1
	}, time.Second, 5*time.Millisecond)
	_, err := rules.Snooze("g1", 30, saturdayCurfew)
	require.NoError(t, err)

	<-done
	assert.Empty(t, session.movedUsers(), "a snooze issued during the grace period is honored")
}

func TestCurfewPartialFailure(t *testing.T) {
	b, rules := newTestSleepiness(t, saturdayCurfew)
	rules.Seed("g1", nil)
	require.NoError(t, rules.AddTime("g1", "01:00"))

	session := newStubSession()
	session.moveErr["u1"] = errors.New("member fled the server")
	b.Watch(context.Background(), session, []*discordgo.Guild{testGuild()})

	assert.Equal(t, []string{"u2"}, session.movedUsers(), "one failure must not stop the loop")
}

func TestCurfewIgnoresConfiguredChannels(t *testing.T) {
	b, rules := newTestSleepiness(t, saturdayCurfew)
	b.cfg.IgnoreChannelNames = []string{"lounge"}
	rules.Seed("g1", nil)
	require.NoError(t, rules.AddTime("g1", "01:00"))

	session := newStubSession()
	b.Watch(context.Background(), session, []*discordgo.Guild{testGuild()})

	assert.Empty(t, session.movedUsers())
}

func TestCurfewSkipsGuildWithoutNotifyChannel(t *testing.T) {
	b, rules := newTestSleepiness(t, saturdayCurfew)
	rules.Seed("g1", nil)
	rules.Seed("g2", nil)
	require.NoError(t, rules.AddTime("g1", "01:00"))
	require.NoError(t, rules.AddTime("g2", "01:00"))

	bare := &discordgo.Guild{
		ID: "g2",
		Channels: []*discordgo.Channel{
			{ID: "v2", Name: "couch", Type: discordgo.ChannelTypeGuildVoice},
		},
		VoiceStates: []*discordgo.VoiceState{{UserID: "u9", ChannelID: "v2"}},
	}
	session := newStubSession()
	b.Watch(context.Background(), session, []*discordgo.Guild{bare, testGuild()})

	assert.ElementsMatch(t, []string{"u1", "u2"}, session.movedUsers(),
		"a broken guild must not stop the others")
}

func TestHandleMessageIgnoresOtherAuthors(t *testing.T) {
	b, _ := newTestSleepiness(t, saturdayCurfew)
	session := newStubSession()
	guild := testGuild()

	// No mention of the bot.
	b.HandleMessage(session, guild, &discordgo.Message{
		Author:    &discordgo.User{ID: "u1"},
		ChannelID: "notify",
		Content:   "status",
	})
	// Authored by a bot.
	b.HandleMessage(session, guild, &discordgo.Message{
		Author:    &discordgo.User{ID: "other-bot", Bot: true},
		ChannelID: "notify",
		Content:   "<@bot> status",
		Mentions:  []*discordgo.User{{ID: "bot"}},
	})

	assert.Empty(t, session.sentContents())
}

func command(content string) *discordgo.Message {
	return &discordgo.Message{
		Author:    &discordgo.User{ID: "u1"},
		ChannelID: "notify",
		Content:   content,
		Mentions:  []*discordgo.User{{ID: "bot"}},
	}
}

func TestHandleMessageAddAndDuplicate(t *testing.T) {
	b, rules := newTestSleepiness(t, saturdayCurfew)
	rules.Seed("g1", nil)
	session := newStubSession()
	guild := testGuild()

	b.HandleMessage(session, guild, command("<@bot> add 05:00"))
	b.HandleMessage(session, guild, command("<@bot> add 05:00"))

	contents := session.sentContents()
	require.Len(t, contents, 2)
	assert.Equal(t, "time has been added to the execution time list.", contents[0])
	assert.Equal(t, "time is already in the execution time list.", contents[1])

	times, _ := rules.List("g1")
	assert.Equal(t, []string{"05:00"}, times)
}

func TestHandleMessageMissingArgument(t *testing.T) {
	b, rules := newTestSleepiness(t, saturdayCurfew)
	rules.Seed("g1", nil)
	session := newStubSession()

	b.HandleMessage(session, testGuild(), command("<@bot> exclude Sunday"))

	contents := session.sentContents()
	require.Len(t, contents, 1)
	assert.Equal(t, "time is required.", contents[0])
	_, exclusions := rules.List("g1")
	assert.Empty(t, exclusions)
}

func TestHandleMessageSleepBounds(t *testing.T) {
	b, rules := newTestSleepiness(t, saturdayCurfew)
	rules.Seed("g1", nil)
	session := newStubSession()
	guild := testGuild()

	b.HandleMessage(session, guild, command("<@bot> sleep 121"))
	assert.False(t, rules.Status("g1").Sleeping)

	b.HandleMessage(session, guild, command("<@bot> sleep abc"))
	assert.False(t, rules.Status("g1").Sleeping)

	b.HandleMessage(session, guild, command("<@bot> sleep 30"))
	assert.True(t, rules.Status("g1").Sleeping)

	contents := session.sentContents()
	require.Len(t, contents, 3)
	assert.Equal(t, "minutes must be between 1 and 120.", contents[0])
	assert.Equal(t, "minutes must be a number.", contents[1])
	assert.Contains(t, contents[2], "start sleeping 30 minutes.")
	assert.Contains(t, session.statuses, string(discordgo.StatusIdle))
}

func TestHandleMessageAwakeAndStatus(t *testing.T) {
	b, rules := newTestSleepiness(t, saturdayCurfew)
	rules.Seed("g1", nil)
	session := newStubSession()
	guild := testGuild()

	// awake while running is silent
	b.HandleMessage(session, guild, command("<@bot> awake"))
	assert.Empty(t, session.sentContents())

	b.HandleMessage(session, guild, command("<@bot> sleep 30"))
	b.HandleMessage(session, guild, command("<@bot> status"))
	b.HandleMessage(session, guild, command("<@bot> awake"))
	b.HandleMessage(session, guild, command("<@bot> status"))

	contents := session.sentContents()
	require.Len(t, contents, 4)
	assert.Contains(t, contents[1], "sleeping until")
	assert.Equal(t, goodMorning, contents[2])
	assert.Equal(t, "sleepiness is running.", contents[3])
}

func TestHandleMessageList(t *testing.T) {
	b, rules := newTestSleepiness(t, saturdayCurfew)
	rules.Seed("g1", nil)
	require.NoError(t, rules.AddTime("g1", "01:00"))
	require.NoError(t, rules.AddExclusion("g1", "Sunday", "01:00"))
	session := newStubSession()

	b.HandleMessage(session, testGuild(), command("<@bot> list"))

	contents := session.sentContents()
	require.Len(t, contents, 1)
	assert.Contains(t, contents[0], "execute:")
	assert.Contains(t, contents[0], "01:00")
	assert.Contains(t, contents[0], "exclude:")
	assert.Contains(t, contents[0], "Sunday 01:00")
}

func TestHandleMessageRun(t *testing.T) {
	b, rules := newTestSleepiness(t, saturdayCurfew.Add(13*time.Hour))
	rules.Seed("g1", nil)
	session := newStubSession()

	b.HandleMessage(session, testGuild(), command("<@bot> run"))

	assert.ElementsMatch(t, []string{"u1", "u2"}, session.movedUsers(),
		"run forces the curfew regardless of the schedule")
}

func TestHandleMessageUnknownVerbShowsHelp(t *testing.T) {
	b, _ := newTestSleepiness(t, saturdayCurfew)
	session := newStubSession()

	b.HandleMessage(session, testGuild(), command("<@bot> dance"))

	contents := session.sentContents()
	require.Len(t, contents, 1)
	assert.Contains(t, contents[0], "usage:")
}
