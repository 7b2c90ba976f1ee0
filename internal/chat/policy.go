package chat

import (
	"fmt"
	"strings"
)

// OverflowPolicy decides what Deliver does when a session queue is full.
type OverflowPolicy int

const (
	// Disconnect stops the slow session. Members that stay joined therefore
	// never miss a message.
	Disconnect OverflowPolicy = iota
	// DropNewest discards the message being delivered.
	DropNewest
	// DropOldest discards the queue head to make room.
	DropOldest
)

func (p OverflowPolicy) String() string {
	switch p {
	case DropNewest:
		return "drop-newest"
	case DropOldest:
		return "drop-oldest"
	default:
		return "disconnect"
	}
}

// ParseOverflowPolicy accepts the names returned by String.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "disconnect":
		return Disconnect, nil
	case "drop-newest", "newest":
		return DropNewest, nil
	case "drop-oldest", "oldest":
		return DropOldest, nil
	default:
		return Disconnect, fmt.Errorf("unknown overflow policy %q (want disconnect|drop-newest|drop-oldest)", s)
	}
}
