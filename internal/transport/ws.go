package transport

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// WSConn carries the line protocol over a WebSocket: every text or binary
// frame holds one line, or several separated by '\n'. Outbound lines are
// sent one per text frame without the trailing newline.
type WSConn struct {
	conn    *websocket.Conn
	maxLine int
	pending []string

	idle         time.Duration
	writeTimeout time.Duration
}

// maxFrameLines is how many full-length lines one inbound frame may carry.
const maxFrameLines = 64

// NewWSConn wraps an upgraded connection. Each line is capped at maxLine
// bytes; a frame may carry up to maxFrameLines such lines.
func NewWSConn(c *websocket.Conn, maxLine int) *WSConn {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineSize
	}
	c.SetReadLimit(int64(maxFrameLines * (maxLine + 2)))
	return &WSConn{conn: c, maxLine: maxLine}
}

func (w *WSConn) SetTimeouts(idle, write time.Duration) {
	w.idle = idle
	w.writeTimeout = write
}

func (w *WSConn) SetReadDeadline(d time.Time) error { return w.conn.SetReadDeadline(d) }

func (w *WSConn) ReadLine() (string, error) {
	for len(w.pending) == 0 {
		if w.idle > 0 {
			_ = w.conn.SetReadDeadline(time.Now().Add(w.idle))
		}
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				return "", ErrFrameTooLarge
			}
			if IsClosedConn(err) {
				return "", io.EOF
			}
			return "", err
		}
		text := strings.TrimSuffix(string(data), "\n")
		for _, line := range strings.Split(text, "\n") {
			w.pending = append(w.pending, strings.TrimSuffix(line, "\r"))
		}
	}
	line := w.pending[0]
	w.pending = w.pending[1:]
	if len(line) > w.maxLine {
		return "", ErrLineTooLong
	}
	return line, nil
}

func (w *WSConn) WriteLine(s string) error {
	if w.writeTimeout > 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	}
	return w.conn.WriteMessage(websocket.TextMessage, []byte(s))
}

// Close sends a close frame when possible and closes the connection.
func (w *WSConn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return w.conn.Close()
}

func (w *WSConn) RemoteAddr() string {
	return w.conn.RemoteAddr().String()
}
