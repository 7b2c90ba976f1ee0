package chat

import (
	"sync"

	"go.uber.org/zap"

	"github.com/hongjun500/linechat/internal/observe"
)

// DefaultHistorySize is how many recent messages a new member is replayed.
const DefaultHistorySize = 10

// Publisher receives every locally originated broadcast after it has been
// delivered, e.g. to relay it to other server processes. Publish must not
// block.
type Publisher interface {
	Publish(Message)
}

// Room is the broadcast domain shared by all sessions of one endpoint.
//
// Join, Leave, Broadcast and Inject are serialized by one mutex. Broadcast
// records a message in history before delivering it, so a concurrent joiner
// sees it exactly once: either replayed or delivered live.
type Room struct {
	name string
	log  *zap.Logger
	pub  Publisher

	mu      sync.Mutex
	members map[Member]struct{}
	history *History
}

// RoomOption configures a Room.
type RoomOption func(*Room)

// WithLogger sets the room logger.
func WithLogger(l *zap.Logger) RoomOption {
	return func(r *Room) {
		if l != nil {
			r.log = l
		}
	}
}

// WithPublisher attaches a relay for local broadcasts.
func WithPublisher(p Publisher) RoomOption {
	return func(r *Room) { r.pub = p }
}

// NewRoom creates an empty room keeping historySize recent messages.
func NewRoom(name string, historySize int, opts ...RoomOption) *Room {
	r := &Room{
		name:    name,
		log:     zap.NewNop(),
		members: make(map[Member]struct{}),
		history: NewHistory(historySize),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(zap.String("room", name))
	return r
}

// Name returns the room name.
func (r *Room) Name() string { return r.name }

// Join adds m and replays the history to it, oldest first. Joining the same
// member twice replays the history twice.
func (r *Room) Join(m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[m]; !ok {
		observe.AddOnline(1)
	}
	r.members[m] = struct{}{}
	r.history.Each(m.Deliver)
	r.log.Debug("room_join", zap.Int("members", len(r.members)), zap.Int("replayed", r.history.Len()))
}

// Leave removes m. It is a no-op when m is not a member.
func (r *Room) Leave(m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[m]; !ok {
		return
	}
	delete(r.members, m)
	observe.AddOnline(-1)
	r.log.Debug("room_leave", zap.Int("members", len(r.members)))
}

// Broadcast records msg and delivers it to every member, the sender
// included, then hands it to the publisher if one is set.
func (r *Room) Broadcast(msg Message) {
	r.fanout(msg)
	observe.IncMessage("local")
	if r.pub != nil {
		r.pub.Publish(msg)
	}
}

// Inject is Broadcast for messages that arrived from another process; they
// are never handed back to the publisher.
func (r *Room) Inject(msg Message) {
	r.fanout(msg)
	observe.IncMessage("remote")
}

func (r *Room) fanout(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history.Push(msg)
	for m := range r.members {
		m.Deliver(msg)
	}
}

// Len returns the current number of members.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Contains reports whether m is currently joined.
func (r *Room) Contains(m Member) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[m]
	return ok
}

// History returns a copy of the recent messages, oldest first.
func (r *Room) History() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.Snapshot()
}
