package transport

import (
	"time"

	"github.com/hongjun500/linechat/internal/chat"
)

// DefaultMaxLineSize caps one line, delimiter excluded.
const DefaultMaxLineSize = 1024

// Options configures listeners (shared across TCP/WS where applicable)
type Options struct {
	MaxLineSize      int           // bytes per line excluding the delimiter
	HandshakeTimeout time.Duration // deadline for the username line; 0 to disable
	ReadTimeout      time.Duration // per-read idle deadline; 0 to disable
	WriteTimeout     time.Duration // per-write deadline; 0 to disable
	QueueSize        int           // session outbound queue bound
	Overflow         chat.OverflowPolicy
}

func (o Options) maxLine() int {
	if o.MaxLineSize <= 0 {
		return DefaultMaxLineSize
	}
	return o.MaxLineSize
}
