package cli

import "errors"

// ErrUsage matches every error caused by bad flags, config or inputs, as
// opposed to internal failures.
var ErrUsage = errors.New("grape2openapi: usage error")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string { return e.msg }

func (e usageError) Is(target error) bool { return target == ErrUsage }
