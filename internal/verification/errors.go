package verification

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("verification not found")
	ErrWrongUser          = errors.New("verification belongs to another member")
	ErrChannelUnavailable = errors.New("no channel available for the verification prompt")
)

// GatewayError wraps a failed call to Discord.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func gatewayError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &GatewayError{Op: op, Err: err}
}
