package chat

import "time"

// Message is one chat line. A message without From is a server notice and
// is written to the wire without the sender prefix.
type Message struct {
	From string
	Text string
	At   time.Time
}

// Notice builds a server notice.
func Notice(text string) Message {
	return Message{Text: text, At: time.Now()}
}

// String returns the wire form of m without the trailing newline.
func (m Message) String() string {
	if m.From == "" {
		return m.Text
	}
	return "[" + m.From + "] " + m.Text
}

// Member is anything a Room can deliver messages to.
type Member interface {
	Deliver(Message)
}
