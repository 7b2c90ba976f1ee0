package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hongjun500/linechat/internal/chat"
	"github.com/hongjun500/linechat/internal/observe"
)

// lineConn is a connection that can be handshaken and then handed to a
// chat.Session.
type lineConn interface {
	chat.Conn
	SetReadDeadline(time.Time) error
	SetTimeouts(idle, write time.Duration)
}

// Listener accepts connections for one Room. Every connection must send its
// username as the first line; only then is a Session created and started.
// Handshakes run in their own goroutines, so a silent client never holds up
// the accept loop.
type Listener struct {
	room     *chat.Room
	opt      Options
	log      *zap.Logger
	sessions *SessionManager
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc

	// mu orders handshakes.Add against Close's Wait.
	mu         sync.Mutex
	closed     bool
	handshakes sync.WaitGroup
	closeOnce  sync.Once
}

// NewListener creates a listener feeding room.
func NewListener(room *chat.Room, opt Options, log *zap.Logger) *Listener {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		room:     room,
		opt:      opt,
		log:      log.With(zap.String("room", room.Name())),
		sessions: NewSessionManager(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Room returns the room sessions are joined to.
func (l *Listener) Room() *chat.Room { return l.room }

// Sessions returns the live session registry.
func (l *Listener) Sessions() *SessionManager { return l.sessions }

// Serve accepts TCP connections from ln until ctx is done or Close is
// called. It returns nil on an orderly stop.
func (l *Listener) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	stopSelf := context.AfterFunc(l.ctx, func() { _ = ln.Close() })
	defer stopSelf()

	l.log.Info("tcp_listen", zap.String("addr", ln.Addr().String()))
	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || l.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			// transient (e.g. EMFILE): back off and retry
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff *= 2
			}
			if backoff > time.Second {
				backoff = time.Second
			}
			l.log.Warn("tcp_accept_error", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		backoff = 0
		l.dispatch(NewTCPConn(conn, l.opt.maxLine()))
	}
}

// ServeHTTP upgrades the request to a WebSocket and runs the same handshake
// as the TCP path.
func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if l.ctx.Err() != nil {
		http.Error(w, ErrListenerClosed.Error(), http.StatusServiceUnavailable)
		return
	}
	ws, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.log.Debug("ws_upgrade_error", zap.Error(err))
		return
	}
	l.dispatch(NewWSConn(ws, l.opt.maxLine()))
}

func (l *Listener) dispatch(conn lineConn) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		_ = conn.Close()
		return
	}
	l.handshakes.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.handshakes.Done()
		l.establish(conn)
	}()
}

// establish reads the username and starts a session, or closes conn.
func (l *Listener) establish(conn lineConn) {
	// shutdown unblocks a pending handshake read
	stop := context.AfterFunc(l.ctx, func() { _ = conn.Close() })
	name, err := l.handshake(conn)
	if !stop() || err != nil {
		_ = conn.Close()
		if err != nil {
			observe.IncHandshakeFailure()
			level := zap.InfoLevel
			if IsClosedConn(err) {
				level = zap.DebugLevel
			}
			l.log.Log(level, "handshake_failed", zap.String("remote", conn.RemoteAddr()), zap.Error(err))
		}
		return
	}

	conn.SetTimeouts(l.opt.ReadTimeout, l.opt.WriteTimeout)
	s := chat.NewSession(conn, name, l.room, chat.SessionOptions{
		QueueSize: l.opt.QueueSize,
		Overflow:  l.opt.Overflow,
		Logger:    l.log,
	})
	s.Start()
	l.sessions.Add(s)
}

func (l *Listener) handshake(conn lineConn) (string, error) {
	if l.opt.HandshakeTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(l.opt.HandshakeTimeout))
	}
	line, err := conn.ReadLine()
	if err != nil {
		return "", err
	}
	_ = conn.SetReadDeadline(time.Time{})
	name := strings.TrimSpace(line)
	if name == "" {
		return "", ErrEmptyUsername
	}
	if !utf8.ValidString(name) {
		return "", ErrInvalidUsername
	}
	return name, nil
}

// Close stops accepting, aborts pending handshakes, stops every session and
// waits for all of them to finish.
func (l *Listener) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()

		l.cancel()
		l.handshakes.Wait()
		l.sessions.StopAll()
		l.log.Info("listener_closed")
	})
}
