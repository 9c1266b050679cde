package engine

import (
	"errors"
	"fmt"
)

// Configuration errors: the call is rejected with no mutation.
var (
	ErrUnknownPlayer = errors.New("unknown player")
	ErrUnknownRegion = errors.New("unknown region")
	ErrBadPointValue = errors.New("point value out of range")
)

// InvariantError reports a ledger/region inconsistency. It indicates a logic
// bug, not a user error.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return "invariant violated: " + e.Msg }

func invariantf(format string, args ...any) *InvariantError {
	return &InvariantError{Msg: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err is one of the rejected-input errors.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrUnknownPlayer) || errors.Is(err, ErrUnknownRegion) || errors.Is(err, ErrBadPointValue)
}
