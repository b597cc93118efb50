package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Session is the slice of the Discord API the bots call.
// *discordgo.Session satisfies it; tests use a stub.
type Session interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	GuildMemberMove(guildID string, userID string, channelID *string, options ...discordgo.RequestOption) error
	UpdateStatusComplex(usd discordgo.UpdateStatusData) error
}

// Notify delivers text to a channel, prefixed with a mention line when
// users are given: "<@id1> <@id2>\ntext". Channel and text are
// mandatory; a delivery failure propagates to the caller.
func Notify(s Session, channelID, text string, users []*discordgo.User) error {
	if channelID == "" {
		return fmt.Errorf("notify: channel is required")
	}
	if text == "" {
		return fmt.Errorf("notify: text is required")
	}
	var b strings.Builder
	for i, user := range users {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString("<@" + user.ID + ">")
	}
	if len(users) > 0 {
		b.WriteString("\n")
	}
	b.WriteString(text)
	_, err := s.ChannelMessageSend(channelID, b.String())
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

// send posts a plain reply, logging a failure instead of propagating
// it; replies are best effort.
func send(s Session, lg zerolog.Logger, channelID, text string) {
	if _, err := s.ChannelMessageSend(channelID, text); err != nil {
		lg.Error().Err(err).Str("channel", channelID).Msg("could not send message")
	}
}

func setPresence(s Session, lg zerolog.Logger, status discordgo.Status) {
	err := s.UpdateStatusComplex(discordgo.UpdateStatusData{Status: string(status)})
	if err != nil {
		lg.Error().Err(err).Msg("could not update presence")
	}
}

// findChannel looks a channel up by name within a guild.
func findChannel(guild *discordgo.Guild, name string) (*discordgo.Channel, error) {
	for _, channel := range guild.Channels {
		if channel.Name == name {
			return channel, nil
		}
	}
	return nil, fmt.Errorf("no channel named %q in guild %s", name, guild.ID)
}

// findRole looks a role up by name within a guild.
func findRole(guild *discordgo.Guild, name string) (*discordgo.Role, error) {
	for _, role := range guild.Roles {
		if role.Name == name {
			return role, nil
		}
	}
	return nil, fmt.Errorf("no role named %q in guild %s", name, guild.ID)
}

// mentionsUser reports whether the user id appears in a message's
// mention list.
func mentionsUser(users []*discordgo.User, id string) bool {
	for _, user := range users {
		if user.ID == id {
			return true
		}
	}
	return false
}

// mentionsRoleNamed reports whether any of the mentioned role ids
// resolves to a role with the given name.
func mentionsRoleNamed(roleIDs []string, guild *discordgo.Guild, name string) bool {
	if guild == nil {
		return false
	}
	for _, id := range roleIDs {
		for _, role := range guild.Roles {
			if role.ID == id && role.Name == name {
				return true
			}
		}
	}
	return false
}

// voiceChannels returns the guild's voice channels.
func voiceChannels(guild *discordgo.Guild) []*discordgo.Channel {
	var channels []*discordgo.Channel
	for _, channel := range guild.Channels {
		if channel.Type == discordgo.ChannelTypeGuildVoice {
			channels = append(channels, channel)
		}
	}
	return channels
}

// voiceOccupants returns the users currently connected to one voice
// channel, read from the guild's voice states.
func voiceOccupants(guild *discordgo.Guild, channelID string) []*discordgo.User {
	var users []*discordgo.User
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		if member := memberByID(guild, vs.UserID); member != nil {
			users = append(users, member.User)
		} else {
			users = append(users, &discordgo.User{ID: vs.UserID})
		}
	}
	return users
}

func memberByID(guild *discordgo.Guild, userID string) *discordgo.Member {
	for _, member := range guild.Members {
		if member.User != nil && member.User.ID == userID {
			return member
		}
	}
	return nil
}

// displayName favors the guild nickname over the account name.
func displayName(guild *discordgo.Guild, user *discordgo.User) string {
	if member := memberByID(guild, user.ID); member != nil && member.Nick != "" {
		return member.Nick
	}
	if user.Username != "" {
		return user.Username
	}
	return user.ID
}
