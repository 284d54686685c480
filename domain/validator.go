package domain

import (
	"chat-relay/errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRawMessage checks the ingress invariants: a session and some text.
func ValidateRawMessage(raw RawMessage) error {
	if err := validate.Struct(raw); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err)
	}
	return nil
}
