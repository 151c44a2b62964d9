package core

import "errors"

var (
	// ErrUnauthenticated rejects a connection whose credential is missing,
	// malformed or fails verification. Checked once, before any message
	// is processed.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidTransition marks a call-control message that does not fit
	// the current lifecycle phase (duplicate accept, reject after end).
	// Logged and swallowed, never sent to clients.
	ErrInvalidTransition = errors.New("invalid call transition")

	// ErrMediaUnavailable reports failed local capture so the caller can
	// prompt or retry.
	ErrMediaUnavailable = errors.New("local media unavailable")

	// ErrNegotiationFailed closes a single peer session without touching
	// its siblings.
	ErrNegotiationFailed = errors.New("negotiation failed")
)
