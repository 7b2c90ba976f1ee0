package chat

import (
	"fmt"
	"reflect"
	"testing"
)

func texts(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Text)
	}
	return out
}

func seq(from, to int) []string {
	out := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, fmt.Sprintf("m%d", i))
	}
	return out
}

func TestHistory(t *testing.T) {
	cases := []struct {
		size, pushes int
		want         []string
	}{
		{size: 10, pushes: 0, want: []string{}},
		{size: 10, pushes: 3, want: seq(1, 3)},
		{size: 10, pushes: 10, want: seq(1, 10)},
		{size: 10, pushes: 12, want: seq(3, 12)},
		{size: 10, pushes: 25, want: seq(16, 25)},
		{size: 1, pushes: 4, want: []string{"m4"}},
		{size: 0, pushes: 4, want: []string{}},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("size%d_push%d", c.size, c.pushes), func(t *testing.T) {
			h := NewHistory(c.size)
			for i := 1; i <= c.pushes; i++ {
				h.Push(Message{Text: fmt.Sprintf("m%d", i)})
				if h.Len() > h.Cap() {
					t.Fatalf("len %d exceeds cap %d", h.Len(), h.Cap())
				}
			}
			if got := texts(h.Snapshot()); !reflect.DeepEqual(got, c.want) {
				t.Fatalf("snapshot = %v, want %v", got, c.want)
			}
		})
	}
}

func TestNewHistoryNegativeSize(t *testing.T) {
	h := NewHistory(-3)
	h.Push(Message{Text: "x"})
	if h.Len() != 0 || h.Cap() != 0 {
		t.Fatalf("negative size should keep nothing, len=%d cap=%d", h.Len(), h.Cap())
	}
}

func TestMessageString(t *testing.T) {
	if got := (Message{From: "alice", Text: "hi"}).String(); got != "[alice] hi" {
		t.Errorf("got %q", got)
	}
	if got := Notice("Welcome to the chat, bob!").String(); got != "Welcome to the chat, bob!" {
		t.Errorf("got %q", got)
	}
}

func TestParseOverflowPolicy(t *testing.T) {
	for _, p := range []OverflowPolicy{Disconnect, DropNewest, DropOldest} {
		got, err := ParseOverflowPolicy(p.String())
		if err != nil || got != p {
			t.Errorf("ParseOverflowPolicy(%q) = %v, %v", p.String(), got, err)
		}
	}
	if _, err := ParseOverflowPolicy("block"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
