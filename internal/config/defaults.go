package config

import (
	"time"

	"github.com/hongjun500/linechat/internal/chat"
	"github.com/hongjun500/linechat/internal/transport"
)

const (
	DefaultHistorySize = chat.DefaultHistorySize
	DefaultMaxLineSize = transport.DefaultMaxLineSize
	DefaultQueueSize   = chat.DefaultQueueSize

	DefaultOverflow = "disconnect"

	// DefaultHandshakeTimeout is how long a new connection may take to send
	// its username.
	DefaultHandshakeTimeout = 10 * time.Second

	DefaultWriteTimeout = 10 * time.Second

	// DefaultShutdownTimeout bounds the wait for sessions on shutdown.
	DefaultShutdownTimeout = 5 * time.Second

	DefaultRedisChannel = "linechat"

	DefaultLogLevel    = "info"
	DefaultLogEncoding = "json"
	DefaultLogOutput   = "stdout"
)

// Default returns a Config populated with the defaults above. Ports stay
// empty: at least one must come from the environment or the command line.
func Default() *Config {
	return &Config{
		HistorySize:      DefaultHistorySize,
		MaxLineSize:      DefaultMaxLineSize,
		QueueSize:        DefaultQueueSize,
		Overflow:         DefaultOverflow,
		HandshakeTimeout: DefaultHandshakeTimeout,
		WriteTimeout:     DefaultWriteTimeout,
		ShutdownTimeout:  DefaultShutdownTimeout,
		RedisChannel:     DefaultRedisChannel,
		LogLevel:         DefaultLogLevel,
		LogEncoding:      DefaultLogEncoding,
		LogOutput:        DefaultLogOutput,
	}
}
