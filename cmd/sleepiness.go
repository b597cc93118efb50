package cmd

import (
	"github.com/spf13/cobra"

	"oyasumi/internal/bot"
	"oyasumi/internal/common"
	"oyasumi/internal/config"
	"oyasumi/internal/schedule"
)

var sleepinessCmd = &cobra.Command{
	Use:   "sleepiness",
	Short: "run the voice-channel curfew bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadSleepiness()
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
		return bot.NewSleepiness(cfg, clock, schedule.NewStore()).Run()
	},
}

func init() {
	rootCmd.AddCommand(sleepinessCmd)
}
