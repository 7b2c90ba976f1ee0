// Command chat-server runs one chat room per TCP port.
//
//	chat-server [flags] <port> [port...]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/hongjun500/linechat/internal/config"
	"github.com/hongjun500/linechat/internal/server"
	"github.com/hongjun500/linechat/pkg/logger"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "chat-server: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

// run parses args over the environment defaults and serves until ctx is
// done. With --check it only validates the configuration.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg := config.Load()
	fs := flag.NewFlagSet("chat-server", flag.ContinueOnError)
	fs.SetOutput(stdout)

	fs.StringVar(&cfg.BindHost, "bind", cfg.BindHost, "Host to bind the chat ports on (default all interfaces)")
	fs.StringVar(&cfg.WSAddr, "ws-addr", cfg.WSAddr, "Serve rooms over WebSocket at <addr>/ws/<port>")
	fs.IntVar(&cfg.HistorySize, "history", cfg.HistorySize, "Messages replayed to a joining user")
	fs.IntVar(&cfg.MaxLineSize, "max-line", cfg.MaxLineSize, "Maximum inbound line length in bytes")
	fs.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "Pending outbound messages per session")
	fs.StringVar(&cfg.Overflow, "overflow", cfg.Overflow, "Full queue policy: disconnect|drop-newest|drop-oldest")
	fs.DurationVar(&cfg.HandshakeTimeout, "handshake-timeout", cfg.HandshakeTimeout, "Time allowed to send the username")
	fs.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "Disconnect idle sessions after this long (0 = never)")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "Per-line write timeout")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Wait this long for sessions on shutdown")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve /metrics and /healthz on this address")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Relay rooms through the Redis server at this address")
	fs.StringVar(&cfg.RedisChannel, "redis-channel", cfg.RedisChannel, "Pub/Sub channel prefix for the Redis relay")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug|info|warn|error")
	fs.StringVar(&cfg.LogEncoding, "log-encoding", cfg.LogEncoding, "json|console")
	fs.StringVar(&cfg.LogOutput, "log-output", cfg.LogOutput, "stdout|stderr|<file>")

	var showVersion, check bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&check, "check", false, "Validate the configuration and exit")
	fs.Usage = func() {
		fmt.Fprintln(stdout, "Usage: chat-server [flags] <port> [port...]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Fprintf(stdout, "chat-server %s\n", version)
		return nil
	}
	if fs.NArg() > 0 {
		ports, err := config.ParsePorts(fs.Args())
		if err != nil {
			return err
		}
		cfg.Ports = ports
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if check {
		fmt.Fprintln(stdout, "configuration ok")
		return nil
	}

	if err := logger.Configure(logger.Options{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
		Output:   cfg.LogOutput,
	}); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}
	log := logger.L()
	log.Info("chat_server_start",
		zap.String("version", version),
		zap.Ints("ports", cfg.Ports),
		zap.Int("history", cfg.HistorySize),
		zap.String("overflow", cfg.Overflow),
	)

	srv := server.New(cfg, log)
	if err := srv.Listen(ctx); err != nil {
		return err
	}
	return srv.Run(ctx)
}
