package internal

import (
	"chat-relay/errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Host                      string        `env:"HOST,default=localhost" validate:"required"`
	Port                      int           `env:"PORT,default=1337" validate:"gt=0,lt=65536"`
	GrpcPort                  int           `env:"GRPC_PORT,default=1338" validate:"gt=0,lt=65536,nefield=Port"`
	AllowedOrigin             string        `env:"ALLOWED_ORIGIN,required=true" validate:"required"`
	LogLevel                  string        `env:"LOG_LEVEL,default=INFO"`
	FanoutPolicy              string        `env:"FANOUT_POLICY,default=session" validate:"oneof=session echo SESSION ECHO"`
	BufferSize                int           `env:"BUFFER_SIZE,default=1024" validate:"gt=0"`
	ConnectionBufferSize      int           `env:"CONNECTION_BUFFER_SIZE,default=64" validate:"gt=0"`
	MaxMessageBytes           int64         `env:"MAX_MESSAGE_BYTES,default=65536" validate:"gt=0"`
	SinkTimeout               time.Duration `env:"SINK_TIMEOUT,default=2s" validate:"gt=0"`
	RestartInterval           time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	HeartbeatInterval         time.Duration `env:"HEARTBEAT_INTERVAL,default=30s" validate:"gt=0"`
	ModerationEnabled         bool          `env:"MODERATION_ENABLED,default=false"`
	ModerationCharReplacement string        `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
	JournalEnabled            bool          `env:"JOURNAL_ENABLED,default=false"`
	BadgerFilepath            string        `env:"BADGER_FILEPATH,default=./data/journal" validate:"required_if=JournalEnabled true"`
	LimitMessages             *int          `env:"LIMIT_MESSAGES" validate:"omitempty,gt=0"`
}

var validate = validator.New()

// Validate checks the ranges go-env cannot express.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	if _, err := CharacterRune(c.ModerationCharReplacement); err != nil {
		return err
	}
	return nil
}

func (c Config) HistoryLimit() int {
	if c.LimitMessages == nil {
		return 0
	}
	return *c.LimitMessages
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"%w: MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			errors.ErrInvalidReplacement, str,
		)
	}
	return r[0], nil
}
