package transport

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/gorilla/websocket"

	"github.com/hongjun500/linechat/internal/chat"
)

// transport errors
var (
	ErrLineTooLong     = NewTpError(1001, "line exceeds size limit", chat.ErrProtocolViolation)
	ErrEmptyUsername   = NewTpError(1002, "empty username", chat.ErrProtocolViolation)
	ErrInvalidUsername = NewTpError(1003, "username is not valid UTF-8", chat.ErrProtocolViolation)
	ErrListenerClosed  = NewTpError(1004, "listener is closed", net.ErrClosed)
	ErrFrameTooLarge   = NewTpError(1005, "websocket frame exceeds size limit", chat.ErrProtocolViolation)
)

type tpError struct {
	code  int
	msg   string
	cause error
}

func (e *tpError) Error() string {
	return fmt.Sprintf("Error %d: %s", e.code, e.msg)
}

func (e *tpError) Unwrap() error { return e.cause }

// Code returns the numeric error code.
func (e *tpError) Code() int { return e.code }

// NewTpError builds a coded transport error. cause may be nil.
func NewTpError(code int, message string, cause error) *tpError {
	return &tpError{
		code:  code,
		msg:   message,
		cause: cause,
	}
}

// IsClosedConn reports whether err is an ordinary end of a connection:
// EOF, use of a closed connection or a websocket close frame.
func IsClosedConn(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
