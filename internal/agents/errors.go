package agents

import "errors"

// Fatal configuration errors. Exceeding a fixed capacity, loading saved
// state out of order, or asking for the ID of something never registered
// leaves the simulation inconsistent, so callers panic with an error
// wrapping one of these.
var (
	ErrCapacity     = errors.New("capacity exceeded")
	ErrLoadOrder    = errors.New("saved state loaded out of order")
	ErrUnregistered = errors.New("not registered")
)
