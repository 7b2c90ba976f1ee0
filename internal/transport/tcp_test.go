package transport

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/hongjun500/linechat/internal/chat"
)

func TestTCPConn_ReadLine(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    []string
		wantErr error
	}{
		{name: "lf", input: "hello\nworld\n", want: []string{"hello", "world"}, wantErr: io.EOF},
		{name: "crlf", input: "hello\r\n", want: []string{"hello"}, wantErr: io.EOF},
		{name: "empty_line", input: "\n", want: []string{""}, wantErr: io.EOF},
		{name: "exact_limit", input: strings.Repeat("a", 16) + "\n", want: []string{strings.Repeat("a", 16)}, wantErr: io.EOF},
		{name: "one_over_limit", input: strings.Repeat("a", 17) + "\n", wantErr: ErrLineTooLong},
		{name: "no_delimiter", input: strings.Repeat("a", 100), wantErr: ErrLineTooLong},
		{name: "partial_at_eof", input: "abc", wantErr: io.EOF},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			client, server := net.Pipe()
			go func() {
				_, _ = io.WriteString(client, c.input)
				_ = client.Close()
			}()
			tc := NewTCPConn(server, 16)
			defer tc.Close()

			var got []string
			var err error
			for {
				var line string
				line, err = tc.ReadLine()
				if err != nil {
					break
				}
				got = append(got, line)
			}
			if strings.Join(got, "|") != strings.Join(c.want, "|") {
				t.Errorf("lines = %q, want %q", got, c.want)
			}
			if !errors.Is(err, c.wantErr) {
				t.Errorf("err = %v, want %v", err, c.wantErr)
			}
		})
	}
}

func TestTCPConn_LineTooLongIsProtocolViolation(t *testing.T) {
	if !errors.Is(ErrLineTooLong, chat.ErrProtocolViolation) {
		t.Fatal("ErrLineTooLong should wrap chat.ErrProtocolViolation")
	}
	if ErrLineTooLong.Code() != 1001 {
		t.Fatalf("code = %d", ErrLineTooLong.Code())
	}
}

func TestTCPConn_WriteLine(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	tc := NewTCPConn(server, 0)
	defer tc.Close()
	tc.SetTimeouts(0, time.Second)

	go func() {
		_ = tc.WriteLine("[alice] hi")
	}()
	line, err := bufio.NewReader(client).ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if line != "[alice] hi\n" {
		t.Fatalf("got %q", line)
	}
}

func TestTCPConn_IdleTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	tc := NewTCPConn(server, 0)
	defer tc.Close()
	tc.SetTimeouts(20*time.Millisecond, 0)

	_, err := tc.ReadLine()
	var ne net.Error
	if !errors.As(err, &ne) || !ne.Timeout() {
		t.Fatalf("err = %v, want timeout", err)
	}
}

func TestIsClosedConn(t *testing.T) {
	if !IsClosedConn(io.EOF) || !IsClosedConn(net.ErrClosed) {
		t.Error("EOF and net.ErrClosed are ordinary closes")
	}
	if IsClosedConn(nil) || IsClosedConn(ErrLineTooLong) {
		t.Error("nil and protocol errors are not ordinary closes")
	}
}
