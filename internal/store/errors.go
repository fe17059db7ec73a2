package store

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrCircuitOpen = errors.New("store circuit breaker is open")
)
