package auth

import (
	"errors"
	"fmt"
)

// Kind classifies why authentication failed.
type Kind int

const (
	MissingToken Kind = iota + 1
	MalformedToken
	InvalidToken
	UnknownKey
	KeySetUnavailable
	IntrospectionUnavailable
)

// String returns the reason string reported to clients.
func (k Kind) String() string {
	switch k {
	case MissingToken:
		return "MissingToken"
	case MalformedToken:
		return "MalformedToken"
	case InvalidToken:
		return "InvalidToken"
	case UnknownKey:
		return "UnknownKey"
	case KeySetUnavailable:
		return "KeySetUnavailable"
	case IntrospectionUnavailable:
		return "IntrospectionUnavailable"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Transient reports whether the failure is caused by an unreachable
// dependency of the gateway rather than by the presented token.
func (k Kind) Transient() bool {
	return k == KeySetUnavailable || k == IntrospectionUnavailable
}

// Error is returned for every authentication failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "auth: " + e.Kind.String()
	}
	return "auth: " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors of the same kind, so
// errors.Is(err, auth.ErrInvalidToken) works on wrapped errors.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Err == nil && t.Kind == e.Kind
}

// Sentinel errors for use with errors.Is.
var (
	ErrMissingToken             = &Error{Kind: MissingToken}
	ErrMalformedToken           = &Error{Kind: MalformedToken}
	ErrInvalidToken             = &Error{Kind: InvalidToken}
	ErrUnknownKey               = &Error{Kind: UnknownKey}
	ErrKeySetUnavailable        = &Error{Kind: KeySetUnavailable}
	ErrIntrospectionUnavailable = &Error{Kind: IntrospectionUnavailable}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of an authentication error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return 0, false
}
