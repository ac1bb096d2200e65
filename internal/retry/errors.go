package retry

import "errors"

var (
	ErrTimeout      = errors.New("call timed out")
	ErrCircuitOpen  = errors.New("circuit breaker open")
	ErrPanic        = errors.New("call panicked")
	ErrInvalidReply = errors.New("invalid provider reply")
)
