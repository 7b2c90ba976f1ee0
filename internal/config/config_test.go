package config

import (
	"strings"
	"testing"
	"time"

	"github.com/hongjun500/linechat/internal/chat"
)

func TestParsePort(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"8080", 8080, false},
		{" 1 ", 1, false},
		{"65535", 65535, false},
		{"0", 0, true},
		{"65536", 0, true},
		{"-1", 0, true},
		{"http", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePort(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParsePorts(t *testing.T) {
	got, err := ParsePorts([]string{"9000", "9001"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != 9000 || got[1] != 9001 {
		t.Fatalf("got %v", got)
	}
	if _, err := ParsePorts([]string{"9000", "x"}); err == nil {
		t.Fatal("expected error for bad element")
	}
}

func TestDefaultIsValidWithPort(t *testing.T) {
	cfg := Default()
	cfg.Ports = []int{9000}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.HistorySize != chat.DefaultHistorySize || cfg.QueueSize != chat.DefaultQueueSize {
		t.Errorf("history/queue = %d/%d, want the chat defaults", cfg.HistorySize, cfg.QueueSize)
	}
	if cfg.OverflowPolicy() != chat.Disconnect {
		t.Errorf("policy = %v", cfg.OverflowPolicy())
	}
	if got := cfg.ListenAddr(9000); got != ":9000" {
		t.Errorf("ListenAddr = %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantSub string
	}{
		{"no ports", func(c *Config) { c.Ports = nil }, "hint:"},
		{"port range", func(c *Config) { c.Ports = []int{70000} }, "out of range"},
		{"duplicate port", func(c *Config) { c.Ports = []int{9000, 9000} }, "given twice"},
		{"negative history", func(c *Config) { c.HistorySize = -1 }, "history size"},
		{"zero line", func(c *Config) { c.MaxLineSize = 0 }, "max line size"},
		{"small queue", func(c *Config) { c.QueueSize = 10 }, "must exceed history size"},
		{"bad policy", func(c *Config) { c.Overflow = "explode" }, "unknown overflow policy"},
		{"negative timeout", func(c *Config) { c.WriteTimeout = -time.Second }, "timeouts"},
		{"redis without channel", func(c *Config) { c.RedisAddr = "localhost:6379"; c.RedisChannel = "" }, "redis channel"},
		{"bad log encoding", func(c *Config) { c.LogEncoding = "xml" }, "log encoding"},
		{"empty log output", func(c *Config) { c.LogOutput = "" }, "log output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Ports = []int{9000}
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestValidate_ReportsAll(t *testing.T) {
	cfg := Default()
	cfg.MaxLineSize = 0
	cfg.Overflow = "nope"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, sub := range []string{"no port", "max line size", "overflow"} {
		if !strings.Contains(err.Error(), sub) {
			t.Errorf("error %q should mention %q", err.Error(), sub)
		}
	}
}
