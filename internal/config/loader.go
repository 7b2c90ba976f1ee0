package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFromEnv overlays CHAT_* environment variables onto cfg. Empty or
// unparsable values leave the existing setting alone. Call it before flag
// parsing so flags win.
func LoadFromEnv(cfg *Config) {
	if v := getEnv("CHAT_PORTS", ""); v != "" {
		if ports, err := ParsePorts(splitList(v)); err == nil {
			cfg.Ports = ports
		}
	}
	cfg.BindHost = getEnv("CHAT_BIND", cfg.BindHost)
	cfg.WSAddr = getEnv("CHAT_WS_ADDR", cfg.WSAddr)

	if v, ok := envInt("CHAT_HISTORY"); ok && v >= 0 {
		cfg.HistorySize = v
	}
	if v, ok := envInt("CHAT_MAX_LINE"); ok && v > 0 {
		cfg.MaxLineSize = v
	}
	// CHAT_OUTBUF is the older name for the queue size.
	if v, ok := envInt("CHAT_OUTBUF"); ok && v > 0 {
		cfg.QueueSize = v
	}
	if v, ok := envInt("CHAT_QUEUE_SIZE"); ok && v > 0 {
		cfg.QueueSize = v
	}
	cfg.Overflow = getEnv("CHAT_OVERFLOW", cfg.Overflow)

	cfg.HandshakeTimeout = envDuration("CHAT_HANDSHAKE_TIMEOUT", cfg.HandshakeTimeout)
	cfg.ReadTimeout = envDuration("CHAT_READ_TIMEOUT", cfg.ReadTimeout)
	cfg.WriteTimeout = envDuration("CHAT_WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.ShutdownTimeout = envDuration("CHAT_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	cfg.MetricsAddr = getEnv("CHAT_METRICS_ADDR", cfg.MetricsAddr)
	cfg.RedisAddr = getEnv("CHAT_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisChannel = getEnv("CHAT_REDIS_CHANNEL", cfg.RedisChannel)
	cfg.LogLevel = getEnv("CHAT_LOG_LEVEL", cfg.LogLevel)
	cfg.LogEncoding = getEnv("CHAT_LOG_ENCODING", cfg.LogEncoding)
	cfg.LogOutput = getEnv("CHAT_LOG_OUTPUT", cfg.LogOutput)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// envDuration accepts Go durations ("500ms", "2s") or plain seconds.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}
