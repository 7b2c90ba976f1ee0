// Package config holds the server's runtime configuration.
//
// Precedence (highest wins): command-line flags, CHAT_* environment
// variables, defaults.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hongjun500/linechat/internal/chat"
)

type Config struct {
	// Ports are the TCP ports to listen on; each one gets its own room.
	Ports []int
	// BindHost is the listen host; empty means every interface.
	BindHost string
	// WSAddr, when set, serves each room over WebSocket at /ws/<port>.
	WSAddr string

	HistorySize int
	MaxLineSize int
	QueueSize   int
	Overflow    string

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration // 0 disables the idle timeout
	WriteTimeout     time.Duration
	ShutdownTimeout  time.Duration

	MetricsAddr  string
	RedisAddr    string
	RedisChannel string

	LogLevel    string
	LogEncoding string // json|console
	LogOutput   string // stdout|stderr|file path
}

// Load returns the defaults overlaid with the environment.
func Load() *Config {
	cfg := Default()
	LoadFromEnv(cfg)
	return cfg
}

// ParsePort parses a decimal port in 1..65535.
func ParsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if p < 1 || p > 65535 {
		return 0, fmt.Errorf("port %d out of range (1-65535)", p)
	}
	return p, nil
}

// ParsePorts parses every element of args with ParsePort.
func ParsePorts(args []string) ([]int, error) {
	out := make([]int, 0, len(args))
	for _, a := range args {
		p, err := ParsePort(a)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ListenAddr returns the TCP address for port.
func (c *Config) ListenAddr(port int) string {
	return fmt.Sprintf("%s:%d", c.BindHost, port)
}

// OverflowPolicy returns the parsed overflow policy. Validate reports a bad
// value; here it falls back to the default.
func (c *Config) OverflowPolicy() chat.OverflowPolicy {
	p, err := chat.ParseOverflowPolicy(c.Overflow)
	if err != nil {
		return chat.Disconnect
	}
	return p
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Ports) == 0 {
		errs = append(errs, errors.New("no port given (hint: chat-server <port> [port...])"))
	}
	seen := make(map[int]bool, len(c.Ports))
	for _, p := range c.Ports {
		if p < 1 || p > 65535 {
			errs = append(errs, fmt.Errorf("port %d out of range (1-65535)", p))
		}
		if seen[p] {
			errs = append(errs, fmt.Errorf("port %d given twice", p))
		}
		seen[p] = true
	}
	if c.HistorySize < 0 {
		errs = append(errs, fmt.Errorf("history size %d must not be negative", c.HistorySize))
	}
	if c.MaxLineSize <= 0 {
		errs = append(errs, fmt.Errorf("max line size %d must be positive", c.MaxLineSize))
	}
	// a joining session queues the welcome line plus the full history
	if c.QueueSize <= c.HistorySize {
		errs = append(errs, fmt.Errorf("queue size %d must exceed history size %d", c.QueueSize, c.HistorySize))
	}
	if _, err := chat.ParseOverflowPolicy(c.Overflow); err != nil {
		errs = append(errs, err)
	}
	if c.HandshakeTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.RedisAddr != "" && c.RedisChannel == "" {
		errs = append(errs, errors.New("redis channel must be set when a redis address is given"))
	}
	if c.LogEncoding != "json" && c.LogEncoding != "console" {
		errs = append(errs, fmt.Errorf("unknown log encoding %q (hint: json or console)", c.LogEncoding))
	}
	if c.LogOutput == "" {
		errs = append(errs, errors.New("log output must not be empty (hint: stdout, stderr or a file path)"))
	}
	return errors.Join(errs...)
}
