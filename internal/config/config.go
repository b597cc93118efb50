// Package config reads the environment-driven configuration surface of
// the bots. A missing required credential is the only fatal condition
// in the whole program.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Common holds the keys every bot reads.
type Common struct {
	Token    string
	LogLevel string
	Timezone string
}

// Sleepiness configures the voice-channel curfew bot.
type Sleepiness struct {
	Common
	NotifyChannelName  string
	IgnoreChannelNames []string
	GracePeriodSeconds int
	WatchSeconds       int
}

// Illustrator configures the drawing-encouragement bot.
type Illustrator struct {
	Common
	NotifyChannelName string
	RoleName          string
	BeginTime         string
}

// Relay configures the language-model relay bot.
type Relay struct {
	Common
	OpenAIKey        string
	OpenAIModel      string
	HistoryResetHour int
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("TZ", "")
	return v
}

func loadCommon(v *viper.Viper) (Common, error) {
	c := Common{
		Token:    v.GetString("TOKEN"),
		LogLevel: v.GetString("LOG_LEVEL"),
		Timezone: v.GetString("TZ"),
	}
	if c.Token == "" {
		return Common{}, fmt.Errorf("TOKEN is required")
	}
	return c, nil
}

// LoadSleepiness reads the curfew bot's configuration.
func LoadSleepiness() (Sleepiness, error) {
	v := newViper()
	v.SetDefault("NOTIFY_CHANNEL_NAME", "bed-room")
	v.SetDefault("IGNORE_CHANNEL_NAMES", "")
	v.SetDefault("GRACE_PERIOD_SECONDS", 10)
	v.SetDefault("WATCH_INTERVAL_SECONDS", 30)

	common, err := loadCommon(v)
	if err != nil {
		return Sleepiness{}, err
	}
	return Sleepiness{
		Common:             common,
		NotifyChannelName:  v.GetString("NOTIFY_CHANNEL_NAME"),
		IgnoreChannelNames: splitNames(v.GetString("IGNORE_CHANNEL_NAMES")),
		GracePeriodSeconds: v.GetInt("GRACE_PERIOD_SECONDS"),
		WatchSeconds:       v.GetInt("WATCH_INTERVAL_SECONDS"),
	}, nil
}

// LoadIllustrator reads the encouragement bot's configuration.
func LoadIllustrator() (Illustrator, error) {
	v := newViper()
	v.SetDefault("NOTIFY_CHANNEL_NAME", "illustration")
	v.SetDefault("ROLE_NAME", "Illustrator")
	v.SetDefault("BEGIN_TIME", "21:00")

	common, err := loadCommon(v)
	if err != nil {
		return Illustrator{}, err
	}
	return Illustrator{
		Common:            common,
		NotifyChannelName: v.GetString("NOTIFY_CHANNEL_NAME"),
		RoleName:          v.GetString("ROLE_NAME"),
		BeginTime:         v.GetString("BEGIN_TIME"),
	}, nil
}

// LoadRelay reads the relay bot's configuration.
func LoadRelay() (Relay, error) {
	v := newViper()
	v.SetDefault("OPENAI_MODEL", "gpt-3.5-turbo")
	v.SetDefault("HISTORY_RESET_HOUR", 6)

	common, err := loadCommon(v)
	if err != nil {
		return Relay{}, err
	}
	key := v.GetString("OPENAI_API_KEY")
	if key == "" {
		return Relay{}, fmt.Errorf("OPENAI_API_KEY is required")
	}
	return Relay{
		Common:           common,
		OpenAIKey:        key,
		OpenAIModel:      v.GetString("OPENAI_MODEL"),
		HistoryResetHour: v.GetInt("HISTORY_RESET_HOUR"),
	}, nil
}

// splitNames splits a comma-separated list, dropping empty entries.
func splitNames(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}
