package chat

import (
	"errors"
	"io"
	"net"
)

var (
	// ErrSlowConsumer stops a session whose outbound queue overflowed under
	// the disconnect policy.
	ErrSlowConsumer = errors.New("chat: outbound queue overflow")

	// ErrSessionStopped is the cause recorded when a session is stopped
	// from outside, e.g. on server shutdown.
	ErrSessionStopped = errors.New("chat: session stopped")

	// ErrProtocolViolation is wrapped by transport errors caused by a peer
	// breaking the line protocol.
	ErrProtocolViolation = errors.New("chat: protocol violation")
)

// closeReason maps a teardown cause to a metrics label.
func closeReason(err error, loop string) string {
	switch {
	case errors.Is(err, ErrSessionStopped):
		return "shutdown"
	case errors.Is(err, ErrSlowConsumer):
		return "slow"
	case errors.Is(err, ErrProtocolViolation):
		return "protocol"
	case errors.Is(err, io.EOF):
		return "eof"
	default:
		return loop
	}
}

// expectedClose reports whether err is an ordinary way for a session to end.
func expectedClose(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, ErrSessionStopped)
}
