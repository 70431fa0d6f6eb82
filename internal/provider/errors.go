package provider

import "errors"

var (
	// ErrNotConnected is returned when a call targets a server that is not
	// currently connected.
	ErrNotConnected = errors.New("provider not connected")
	// ErrTimeout is returned when a provider does not answer a call within
	// the configured window. The underlying request may still be processed
	// by the provider; only the wait is abandoned.
	ErrTimeout = errors.New("provider call timed out")
	// ErrSpawn is returned when a provider process fails to launch.
	ErrSpawn = errors.New("provider spawn failed")
	// ErrMalformedResponse is returned when a provider emits a line that
	// cannot be parsed as a response.
	ErrMalformedResponse = errors.New("malformed provider response")
	// ErrCallFailed is returned when a provider answers a call with an
	// error object instead of a result.
	ErrCallFailed = errors.New("provider call failed")
)
