package transport

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net"
	"time"
)

// TCPConn is a line-oriented net.Conn. ReadLine never buffers more than
// the configured line size, so a peer cannot grow memory without sending
// a newline.
type TCPConn struct {
	conn    net.Conn
	r       *bufio.Reader
	maxLine int

	idle         time.Duration
	writeTimeout time.Duration
}

// NewTCPConn wraps c. Lines longer than maxLine bytes fail with
// ErrLineTooLong.
func NewTCPConn(c net.Conn, maxLine int) *TCPConn {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineSize
	}
	// room for the line, an optional '\r' and the '\n'
	return &TCPConn{conn: c, r: bufio.NewReaderSize(c, maxLine+2), maxLine: maxLine}
}

// SetTimeouts sets the idle read and the write deadline applied to every
// subsequent ReadLine and WriteLine.
func (t *TCPConn) SetTimeouts(idle, write time.Duration) {
	t.idle = idle
	t.writeTimeout = write
}

func (t *TCPConn) SetReadDeadline(d time.Time) error { return t.conn.SetReadDeadline(d) }

// ReadLine returns the next line without "\n" or "\r\n".
func (t *TCPConn) ReadLine() (string, error) {
	if t.idle > 0 {
		_ = t.conn.SetReadDeadline(time.Now().Add(t.idle))
	}
	line, err := t.r.ReadSlice('\n')
	if err != nil {
		if errors.Is(err, bufio.ErrBufferFull) {
			return "", ErrLineTooLong
		}
		return "", err
	}
	line = bytes.TrimSuffix(line[:len(line)-1], []byte{'\r'})
	if len(line) > t.maxLine {
		return "", ErrLineTooLong
	}
	return string(line), nil
}

// WriteLine writes s and a newline in one call.
func (t *TCPConn) WriteLine(s string) error {
	if t.writeTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	}
	_, err := fmt.Fprintln(t.conn, s)
	return err
}

func (t *TCPConn) Close() error { return t.conn.Close() }

func (t *TCPConn) RemoteAddr() string {
	if t.conn == nil {
		return ""
	}
	return t.conn.RemoteAddr().String()
}
