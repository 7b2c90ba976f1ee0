package transport

import (
	"sync"
	"sync/atomic"

	"github.com/hongjun500/linechat/internal/chat"
)

// SessionManager tracks the live sessions of one listener so they can be
// stopped on shutdown.
type SessionManager struct {
	sync.Map // key: id string, value: *chat.Session
	count    int64
}

// NewSessionManager creates an empty manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{}
}

// Add registers s and removes it again once both of its loops exit.
func (sm *SessionManager) Add(s *chat.Session) {
	if s == nil {
		return
	}
	sm.Store(s.ID(), s)
	atomic.AddInt64(&sm.count, 1)
	go func() {
		<-s.Done()
		sm.Remove(s.ID())
	}()
}

// Remove forgets the session with the given id.
func (sm *SessionManager) Remove(id string) {
	if _, loaded := sm.LoadAndDelete(id); loaded {
		atomic.AddInt64(&sm.count, -1)
	}
}

// Count returns the number of tracked sessions.
func (sm *SessionManager) Count() int64 {
	return atomic.LoadInt64(&sm.count)
}

// GetAll returns a snapshot of the tracked sessions.
func (sm *SessionManager) GetAll() []*chat.Session {
	out := make([]*chat.Session, 0)
	sm.Range(func(_, v any) bool {
		if s, ok := v.(*chat.Session); ok {
			out = append(out, s)
		}
		return true
	})
	return out
}

// StopAll stops every tracked session and waits for their loops to exit.
func (sm *SessionManager) StopAll() {
	all := sm.GetAll()
	for _, s := range all {
		s.Stop()
	}
	for _, s := range all {
		<-s.Done()
	}
}
