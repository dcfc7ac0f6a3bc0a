package apperr

import "errors"

// Kind classifies per-request recoverable error conditions. None of these
// are process-fatal.
type Kind int

const (
	// Validation means an invariant was violated at construction or
	// mutation time. Fail fast, surface to the caller verbatim.
	Validation Kind = iota + 1
	// Conflict means an optimistic-concurrency guard detected a concurrent
	// write; the caller should re-read and retry with a bounded count.
	Conflict
	// NotFound means a referenced record is absent.
	NotFound
	// Authentication means password mismatch or unknown account. The two
	// are deliberately indistinguishable to avoid enumeration leakage.
	Authentication
	// TokenInvalid means an expired, malformed or revoked token was
	// presented; refresh fails closed.
	TokenInvalid
)

// Error carries a kind and a caller-facing message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// E builds a kinded error.
func E(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// KindOf returns the kind of err, or 0 for unkinded errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
