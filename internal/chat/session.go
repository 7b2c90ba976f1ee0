package chat

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hongjun500/linechat/internal/observe"
)

// DefaultQueueSize bounds a session's pending outbound messages.
const DefaultQueueSize = 256

// Conn is the line stream a Session owns. ReadLine returns one line without
// its delimiter; WriteLine writes s followed by a newline.
type Conn interface {
	ReadLine() (string, error)
	WriteLine(s string) error
	Close() error
	RemoteAddr() string
}

// SessionState is the lifecycle stage of a Session.
type SessionState int32

const (
	StateActive SessionState = iota
	StateClosing
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// SessionOptions tunes a Session. Zero values select defaults.
type SessionOptions struct {
	QueueSize int
	Overflow  OverflowPolicy
	Logger    *zap.Logger
}

// Session is one connected client: an inbound loop forwarding lines to the
// room and an outbound loop draining the session queue onto the connection.
type Session struct {
	id   string
	name string
	conn Conn
	room *Room
	log  *zap.Logger

	queueSize int
	overflow  OverflowPolicy

	mu         sync.Mutex
	queue      []Message
	overflowed bool
	err        error

	// wake holds at most one pending signal; Deliver never blocks on it.
	wake   chan struct{}
	done   chan struct{} // closed by stop
	closed chan struct{} // closed once both loops returned

	// joinMu orders Start's Join against stop's state change, so a session
	// stopped before Start never enters the room.
	joinMu   sync.Mutex
	state    atomic.Int32
	started  atomic.Bool
	stopOnce sync.Once
}

// NewSession binds conn to room for the user name. The session does nothing
// until Start.
func NewSession(conn Conn, name string, room *Room, opt SessionOptions) *Session {
	if opt.QueueSize <= 0 {
		opt.QueueSize = DefaultQueueSize
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	id := uuid.NewString()
	return &Session{
		id:        id,
		name:      name,
		conn:      conn,
		room:      room,
		queueSize: opt.QueueSize,
		overflow:  opt.Overflow,
		log: opt.Logger.With(
			zap.String("session", id),
			zap.String("user", name),
			zap.String("remote", conn.RemoteAddr()),
		),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
}

func (s *Session) ID() string          { return s.id }
func (s *Session) Name() string        { return s.name }
func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

// Done is closed once both loops have exited.
func (s *Session) Done() <-chan struct{} { return s.closed }

// Err returns the cause of teardown, or nil while the session is active.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Start queues the welcome line, joins the room and launches both loops.
// Calls after the first are ignored. A session stopped before Start never
// joins; it is marked closed and Done is closed right away.
func (s *Session) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.joinMu.Lock()
	if s.State() != StateActive {
		s.joinMu.Unlock()
		s.state.Store(int32(StateClosed))
		close(s.closed)
		return
	}
	s.Deliver(Notice(fmt.Sprintf("Welcome to the chat, %s!", s.name)))
	s.room.Join(s)
	s.joinMu.Unlock()
	s.log.Info("session_started")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.readLoop()
	}()
	go func() {
		defer wg.Done()
		s.writeLoop()
	}()
	go func() {
		wg.Wait()
		s.state.Store(int32(StateClosed))
		close(s.closed)
	}()
}

// Deliver queues msg for the outbound loop and wakes it. It never blocks and
// is safe to call from any goroutine. A full queue is handled according to
// the overflow policy.
func (s *Session) Deliver(msg Message) {
	s.mu.Lock()
	if s.State() != StateActive || s.overflowed {
		s.mu.Unlock()
		return
	}
	if len(s.queue) >= s.queueSize {
		observe.IncDropped(s.overflow.String())
		switch s.overflow {
		case DropNewest:
			s.mu.Unlock()
			return
		case DropOldest:
			s.queue[0] = Message{}
			s.queue = s.queue[1:]
		default:
			s.overflowed = true
			s.mu.Unlock()
			// Deliver may run under the room lock; stop needs it for Leave.
			go s.stop(ErrSlowConsumer, "write")
			return
		}
	}
	s.queue = append(s.queue, msg)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued outbound messages.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Stop tears the session down. It is safe to call repeatedly and
// concurrently with the session's own teardown.
func (s *Session) Stop() { s.stop(ErrSessionStopped, "") }

func (s *Session) stop(cause error, loop string) {
	s.stopOnce.Do(func() {
		s.joinMu.Lock()
		s.state.Store(int32(StateClosing))
		s.joinMu.Unlock()
		s.mu.Lock()
		s.err = cause
		s.queue = nil
		s.mu.Unlock()

		s.room.Leave(s)
		close(s.done)
		_ = s.conn.Close()

		reason := closeReason(cause, loop)
		observe.IncSessionClosed(reason)
		if expectedClose(cause) {
			s.log.Info("session_closed", zap.String("reason", reason))
		} else {
			s.log.Warn("session_closed", zap.String("reason", reason), zap.Error(cause))
		}
	})
}

func (s *Session) readLoop() {
	for {
		line, err := s.conn.ReadLine()
		if err != nil {
			s.stop(err, "read")
			return
		}
		if s.State() != StateActive {
			return
		}
		s.room.Broadcast(Message{From: s.name, Text: line, At: time.Now()})
	}
}

func (s *Session) writeLoop() {
	for {
		msg, ok := s.next()
		if !ok {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		if err := s.conn.WriteLine(msg.String()); err != nil {
			s.stop(err, "write")
			return
		}
	}
}

// next pops the queue head. Only the outbound loop pops, so one message is
// written at a time and in queue order.
func (s *Session) next() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 || s.State() != StateActive {
		return Message{}, false
	}
	msg := s.queue[0]
	s.queue[0] = Message{}
	s.queue = s.queue[1:]
	return msg, true
}
