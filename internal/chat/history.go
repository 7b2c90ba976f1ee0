package chat

// History keeps the last Cap() messages in arrival order. When full, Push
// overwrites the oldest entry. History is not safe for concurrent use; the
// Room serializes access to it.
type History struct {
	buf   []Message
	start int // index of the oldest entry
	n     int
}

// NewHistory returns a ring of the given size. A size of zero keeps nothing.
func NewHistory(size int) *History {
	if size < 0 {
		size = 0
	}
	return &History{buf: make([]Message, size)}
}

// Push appends m, evicting the oldest entry when the ring is full.
func (h *History) Push(m Message) {
	if len(h.buf) == 0 {
		return
	}
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = m
		h.n++
		return
	}
	h.buf[h.start] = m
	h.start = (h.start + 1) % len(h.buf)
}

// Len returns the number of stored messages.
func (h *History) Len() int { return h.n }

// Cap returns the ring size.
func (h *History) Cap() int { return len(h.buf) }

// Each calls fn for every stored message, oldest first.
func (h *History) Each(fn func(Message)) {
	for i := 0; i < h.n; i++ {
		fn(h.buf[(h.start+i)%len(h.buf)])
	}
}

// Snapshot copies the stored messages, oldest first.
func (h *History) Snapshot() []Message {
	out := make([]Message, 0, h.n)
	h.Each(func(m Message) { out = append(out, m) })
	return out
}
