package cmd

import (
	"github.com/spf13/cobra"

	"oyasumi/internal/bot"
	"oyasumi/internal/common"
	"oyasumi/internal/config"
)

var illustratorCmd = &cobra.Command{
	Use:   "illustrator",
	Short: "run the drawing-encouragement bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadIllustrator()
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
		return bot.NewIllustrator(cfg, clock).Run()
	},
}

func init() {
	rootCmd.AddCommand(illustratorCmd)
}
