package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	RelayURL    string `envconfig:"RELAY_URL" default:"ws://localhost:1337/ws"`
	Origin      string `envconfig:"RELAY_ORIGIN"`
	IdentityURL string `envconfig:"IDENTITY_URL" default:"http://localhost:1337"`
	// RECONNECT_ATTEMPTS bounds the retries after the first dial
	ReconnectAttempts int           `envconfig:"RECONNECT_ATTEMPTS" default:"5"`
	ReconnectDelay    time.Duration `envconfig:"RECONNECT_DELAY" default:"1s"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"WARN"`
	// CHAT_COLOURS enables colorized output
	Colours bool `envconfig:"CHAT_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
