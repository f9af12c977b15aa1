package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omochice/wschat/internal/chat"
	"github.com/omochice/wschat/internal/config"
	"github.com/omochice/wschat/internal/logging"
	"github.com/omochice/wschat/internal/server"
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
		Use:   "wschat-server",
		Short: "Chat relay: serves the chat page and relays each frame to every other session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Listen, "listen", cfg.Listen, "address to listen on (e.g. :8080)")
	flags.BoolVar(&cfg.WrapUser, "wrap-user", cfg.WrapUser, "relay text frames as {user, message} payloads")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	flags.BoolVar(&cfg.LogPretty, "log-pretty", cfg.LogPretty, "human-readable logs on stderr")
	return cmd
}

func runServer(ctx context.Context, cfg config.Config) error {
	if err := logging.Setup(cfg.LogLevel, cfg.LogPretty); err != nil {
		return err
	}

	var transform chat.Transform
	if cfg.WrapUser {
		transform = chat.WrapUser
	}
	srv := server.New(cfg.Listen, chat.NewHub(transform))
	if err := srv.Listen(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr()).Msgf("[server] open http://%s/ in a browser", srv.Addr())
		errChan <- srv.Serve()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("[server] shutting down")
		srv.Stop()
		if err := <-errChan; err != nil {
			return err
		}
	}

	log.Info().Msg("[server] stopped")
	return nil
}
