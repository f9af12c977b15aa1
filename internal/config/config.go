// Package config loads settings from WSCHAT_* environment variables. The values
// become the defaults of the command-line flags.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix.
const Prefix = "WSCHAT"

// Config holds every setting shared by the commands.
type Config struct {
	// Address is the chat endpoint the client and bot dial.
	Address string `envconfig:"ADDRESS" default:"ws://localhost:8080/chat"`
	// Engine selects the client websocket implementation: nhooyr or gobwas.
	Engine string `envconfig:"ENGINE" default:"nhooyr"`
	// Greeting is sent once when the connection opens, if set.
	Greeting string `envconfig:"GREETING"`
	// Format is the client display format: text or html.
	Format string `envconfig:"FORMAT" default:"text"`

	// Listen is the relay server listen address.
	Listen string `envconfig:"LISTEN" default:":8080"`
	// WrapUser makes the relay re-encode text frames as {user, message}.
	WrapUser bool `envconfig:"WRAP_USER" default:"false"`

	// BotName is the name the bot answers "say my name" with.
	BotName string `envconfig:"BOT_NAME" default:"Heisenberg"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"true"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
