package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/hongjun500/linechat/pkg/logger"
)

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"--version"}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "chat-server ") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"--help"}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Usage: chat-server") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRun_Check(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"--check", "9000", "9001"}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "configuration ok") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantSub string
	}{
		{"no ports", []string{"--check"}, "no port"},
		{"bad port", []string{"--check", "http"}, "invalid port"},
		{"bad policy", []string{"--check", "--overflow", "explode", "9000"}, "overflow"},
		{"unknown flag", []string{"--nonexistent-flag"}, "unknown flag"},
		{"bad log encoding", []string{"--check", "--log-encoding", "xml", "9000"}, "log encoding"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(context.Background(), tt.args, &out)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Fatalf("err %q should contain %q", err, tt.wantSub)
			}
		})
	}
}

func TestRun_BindFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()
	port := strconv.Itoa(busy.Addr().(*net.TCPAddr).Port)

	var out bytes.Buffer
	err = run(context.Background(), []string{"--bind", "127.0.0.1", "--log-level", "error", port}, &out)
	if err == nil || !strings.Contains(err.Error(), "listen on port") {
		t.Fatalf("err = %v", err)
	}
}

func TestRun_LogOutputFile(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()
	port := strconv.Itoa(busy.Addr().(*net.TCPAddr).Port)
	t.Cleanup(func() { _ = logger.Configure(logger.Options{}) })

	path := filepath.Join(t.TempDir(), "server.log")
	var out bytes.Buffer
	err = run(context.Background(), []string{"--bind", "127.0.0.1", "--log-encoding", "console", "--log-output", path, port}, &out)
	if err == nil {
		t.Fatal("expected bind error")
	}
	logger.Sync()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "chat_server_start") {
		t.Fatalf("log file = %q", raw)
	}
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := strconv.Itoa(probe.Addr().(*net.TCPAddr).Port)
	probe.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		var out bytes.Buffer
		done <- run(ctx, []string{"--bind", "127.0.0.1", "--log-level", "error", port}, &out)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		c, err := net.DialTimeout("tcp", "127.0.0.1:"+port, 100*time.Millisecond)
		if err == nil {
			c.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
