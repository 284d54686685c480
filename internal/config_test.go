package internal

import (
	"chat-relay/errors"
	"testing"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	var config Config

	err := env.Unmarshal(env.EnvSet{"ALLOWED_ORIGIN": "http://localhost:5173"}, &config)

	req.NoError(err)
	req.NoError(config.Validate())
	req.Equal(1337, config.Port)
	req.Equal(1338, config.GrpcPort)
	req.Equal("session", config.FanoutPolicy)
	req.Equal(64, config.ConnectionBufferSize)
	req.Nil(config.LimitMessages)
	req.Equal(0, config.HistoryLimit())
}

func TestConfig_MissingOrigin(t *testing.T) {
	var config Config

	err := env.Unmarshal(env.EnvSet{}, &config)

	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		description string
		environment env.EnvSet
		wantErr     error
	}{
		{
			"Should fail with an unknown fanout policy",
			env.EnvSet{"ALLOWED_ORIGIN": "*", "FANOUT_POLICY": "broadcast"},
			errors.ErrInvalidConfig,
		},
		{
			"Should fail when both servers share a port",
			env.EnvSet{"ALLOWED_ORIGIN": "*", "PORT": "9000", "GRPC_PORT": "9000"},
			errors.ErrInvalidConfig,
		},
		{
			"Should fail with a multi character replacement",
			env.EnvSet{"ALLOWED_ORIGIN": "*", "MODERATION_CHARACTER_REPLACEMENT": "**"},
			errors.ErrInvalidReplacement,
		},
		{
			"Should fail with a zero page size",
			env.EnvSet{"ALLOWED_ORIGIN": "*", "LIMIT_MESSAGES": "0"},
			errors.ErrInvalidConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			var config Config
			err := env.Unmarshal(tt.environment, &config)
			require.NoError(t, err)
			require.ErrorIs(t, config.Validate(), tt.wantErr)
		})
	}
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("#")
	req.NoError(err)
	req.Equal('#', r)

	_, err = CharacterRune("")
	req.ErrorIs(err, errors.ErrInvalidReplacement)
}
