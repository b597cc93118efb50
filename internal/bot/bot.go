// Package bot holds the Discord-facing side of the herd: the command
// parser, the three bots and their watch loops.
package bot

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// serve creates the Discord session, wires the bot's handlers into it,
// runs the periodic watch on its own goroutine and blocks until the
// process is interrupted. All bots share this loop; only the handlers
// and the watch body differ.
func serve(token string, attach func(*discordgo.Session), watch func(context.Context, *discordgo.Session), every time.Duration) error {
	discord, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("could not create discord session: %w", err)
	}
	discord.Identify.Intents = discordgo.IntentsAll

	attach(discord)

	if err := discord.Open(); err != nil {
		return fmt.Errorf("could not open discord session: %w", err)
	}
	defer discord.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				watch(ctx, discord)
			}
		}
	}()

	log.Info().Msg("bot is running, press ctrl+c to exit")
	<-ctx.Done()
	return nil
}
