package elamport

import "errors"

// Sentinel errors for protocol invariant violations: they indicate a
// broken peer, not an environmental fault. ErrQueueEmpty and
// ErrReleaseNotAtHead are fatal to a simulation run: the peer loop panics
// with them. The id-range errors and ErrUnknownKind are returned to the
// caller (the Message constructors and Transport.Send); a peer logs a
// constructor error and skips that send, and ignores the error Send
// returns, so they do not stop the run.
var (
	ErrSenderOutOfRange   = errors.New("elamport: sender id out of range")
	ErrReceiverOutOfRange = errors.New("elamport: receiver id out of range")
	ErrQueueEmpty         = errors.New("elamport: request queue is empty")
	ErrReleaseNotAtHead   = errors.New("elamport: RELEASE sender is not the head of the request queue")
	ErrUnknownKind        = errors.New("elamport: unknown message kind")
)
