// Package lnperrors implements the error taxonomy described in spec.md §7:
// a small set of sentinel-like error kinds that every daemon classifies its
// failures into before deciding whether to log-and-swallow, report to an
// enquirer, or treat as fatal. Concrete errors are wrapped with
// github.com/go-errors/errors at the daemon boundary so a crash handler can
// still print a stack trace; this package only carries the classification.
package lnperrors

import (
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// Kind classifies an error for the propagation policy of spec.md §7.
type Kind int

const (
	// KindNotSupported: a request arrived on a bus that cannot handle it.
	// Logged and returned; never kills the daemon.
	KindNotSupported Kind = iota
	// KindChannelNegotiation: a BOLT-2 parameter was rejected. Surfaced to
	// the enquirer; the channel stays in its pre-failure state.
	KindChannelNegotiation
	// KindTransport: an ESB send/receive failed. Swallowed at
	// handle_err — one peer's dead link must not crash other channels.
	KindTransport
	// KindStorage: the persistence driver failed. Propagated as a fatal
	// channel error; continuing without persistence is unsafe.
	KindStorage
	// KindOther: catch-all for bookkeeping mismatches (e.g. an unknown
	// channel on Connect).
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNotSupported:
		return "NotSupported"
	case KindChannelNegotiation:
		return "ChannelNegotiationError"
	case KindTransport:
		return "Transport"
	case KindStorage:
		return "Storage"
	case KindOther:
		return "Other"
	default:
		return "Unknown"
	}
}

// Error is the concrete error value carried across daemon boundaries.
type Error struct {
	Kind    Kind
	Message string
	// Bus and RequestType are populated for KindNotSupported, naming the
	// bus the request arrived on and the request's type tag.
	Bus         string
	RequestType string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotSupported:
		return fmt.Sprintf("NotSupported(%s, %s)", e.Bus, e.RequestType)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// NotSupported builds the structural error raised when a request arrives on
// a bus that cannot serve it (spec.md §7, §8 scenario 6).
func NotSupported(bus, requestType string) *Error {
	return &Error{Kind: KindNotSupported, Bus: bus, RequestType: requestType}
}

// ChannelNegotiation builds a parameter-level rejection error.
func ChannelNegotiation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindChannelNegotiation, Message: fmt.Sprintf(format, args...)}
}

// Transport builds an ESB transport-level error.
func Transport(format string, args ...interface{}) *Error {
	return &Error{Kind: KindTransport, Message: fmt.Sprintf(format, args...)}
}

// Storage builds a fatal persistence-driver error.
func Storage(format string, args ...interface{}) *Error {
	return &Error{Kind: KindStorage, Message: fmt.Sprintf(format, args...)}
}

// Other builds a catch-all bookkeeping error (e.g. "Unknown channel").
func Other(message string) *Error {
	return &Error{Kind: KindOther, Message: message}
}

// WithStack wraps err with a stack trace for logging at the point a daemon
// is about to give up on it, matching the teacher's use of
// github.com/go-errors/errors throughout daemon/server.go and daemon/lnd.go.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, 1)
}
