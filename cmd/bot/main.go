package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omochice/wschat/internal/bot"
	"github.com/omochice/wschat/internal/config"
	"github.com/omochice/wschat/internal/logging"
	"github.com/omochice/wschat/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wschat-bot",
		Short: "Echo bot: answers \"say my name\" and echoes everything else",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Address, "address", cfg.Address, "chat endpoint (e.g. ws://localhost:8080/chat)")
	flags.StringVar(&cfg.Engine, "engine", cfg.Engine, "websocket implementation: nhooyr or gobwas")
	flags.StringVar(&cfg.BotName, "name", cfg.BotName, "name given in reply to \"say my name\"")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	flags.BoolVar(&cfg.LogPretty, "log-pretty", cfg.LogPretty, "human-readable logs on stderr")
	return cmd
}

func runBot(ctx context.Context, cfg config.Config) error {
	if err := logging.Setup(cfg.LogLevel, cfg.LogPretty); err != nil {
		return err
	}
	dialer, err := transport.NewDialer(cfg.Engine)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := bot.New(bot.NewResponder(cfg.BotName))
	ch := transport.New(dialer, b)
	b.Bind(ch)

	log.Info().Str("address", cfg.Address).Msg("[bot] running")
	ch.Open(ctx, cfg.Address)

	select {
	case <-ctx.Done():
		log.Info().Msg("[bot] stop requested")
		ch.Close()
	case <-ch.Done():
	}
	return nil
}
