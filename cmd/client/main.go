package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omochice/wschat/internal/config"
	"github.com/omochice/wschat/internal/logging"
	"github.com/omochice/wschat/internal/render"
	"github.com/omochice/wschat/internal/transport"
	"github.com/omochice/wschat/pkg/protocol"
)

const quitCommand = "/quit"

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
		Use:   "wschat-client",
		Short: "Terminal chat client: stdin lines are sent, received messages are printed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cmd.Context(), cfg, os.Stdin, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Address, "address", cfg.Address, "chat endpoint (e.g. ws://localhost:8080/chat)")
	flags.StringVar(&cfg.Engine, "engine", cfg.Engine, "websocket implementation: nhooyr or gobwas")
	flags.StringVar(&cfg.Greeting, "greeting", cfg.Greeting, "message sent once the connection opens")
	flags.StringVar(&cfg.Format, "format", cfg.Format, "display format: text or html")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	flags.BoolVar(&cfg.LogPretty, "log-pretty", cfg.LogPretty, "human-readable logs on stderr")
	return cmd
}

func newDisplay(format string, out io.Writer) (render.Display, error) {
	switch format {
	case "", "text":
		return render.NewWriterDisplay(out), nil
	case "html":
		return render.NewHTMLDisplay(out), nil
	default:
		return nil, fmt.Errorf("unknown display format %q", format)
	}
}

func runClient(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer) error {
	if err := logging.Setup(cfg.LogLevel, cfg.LogPretty); err != nil {
		return err
	}
	dialer, err := transport.NewDialer(cfg.Engine)
	if err != nil {
		return err
	}
	display, err := newDisplay(cfg.Format, out)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var r *render.Renderer
	var ch *transport.Channel
	ch = transport.New(dialer, transport.HandlerFuncs{
		Open: func() {
			log.Info().Str("address", cfg.Address).Msg("[client] connected, type messages (/quit to exit)")
			if cfg.Greeting != "" {
				ch.Send(cfg.Greeting)
			}
		},
		Message: func(f protocol.Frame) { r.DecodeAndAppend(f) },
		Error:   func(err error) { log.Warn().Err(err).Msg("[client] connection error") },
		Close:   func() { log.Info().Msg("[client] disconnected") },
	})
	r = render.New(ch, display)

	ch.Open(ctx, cfg.Address)
	defer ch.Close()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Warn().Err(err).Msg("[client] read input")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch.Done():
			return nil
		case line, ok := <-lines:
			if !ok || line == quitCommand {
				return nil
			}
			r.SetInput(line)
			r.Submit()
		}
	}
}
