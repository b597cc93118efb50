package cmd

import (
	"github.com/spf13/cobra"

	"oyasumi/internal/bot"
	"oyasumi/internal/common"
	"oyasumi/internal/config"
	"oyasumi/internal/history"
	"oyasumi/internal/llm"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "run the language-model relay bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadRelay()
		if err != nil {
			return err
		}
		if err := config.ApplyLogLevel(cfg.LogLevel); err != nil {
			return err
		}
		clock, err := common.NewClock(cfg.Timezone)
		if err != nil {
			return err
		}
		store := history.NewStore()
		relay := llm.NewRelay(llm.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel), store)
		return bot.NewRelayBot(cfg, clock, store, relay).Run()
	},
}

func init() {
	rootCmd.AddCommand(relayCmd)
}
