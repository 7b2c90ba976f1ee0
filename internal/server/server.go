// Package server wires rooms, listeners and the optional relay and HTTP
// endpoints into one process.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hongjun500/linechat/internal/bus/redisbus"
	"github.com/hongjun500/linechat/internal/chat"
	"github.com/hongjun500/linechat/internal/config"
	"github.com/hongjun500/linechat/internal/observe"
	"github.com/hongjun500/linechat/internal/transport"
)

// Endpoint is one listening port and the room behind it.
type Endpoint struct {
	Name     string
	Room     *chat.Room
	Listener *transport.Listener

	ln net.Listener
}

// Addr returns the bound TCP address.
func (e *Endpoint) Addr() string { return e.ln.Addr().String() }

type Server struct {
	cfg *config.Config
	log *zap.Logger

	endpoints []*Endpoint
	bus       *redisbus.Bus
	wsLn      net.Listener
	metricsLn net.Listener
}

// New creates a server for cfg. cfg is expected to be validated.
func New(cfg *config.Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{cfg: cfg, log: log}
}

// Listen binds every configured address and connects the relay. Any
// failure is returned after releasing what was already bound.
func (s *Server) Listen(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			s.closeListeners()
		}
	}()

	if s.cfg.RedisAddr != "" {
		s.bus, err = redisbus.Dial(ctx, s.cfg.RedisAddr, s.cfg.RedisChannel,
			redisbus.WithLogger(s.log.Named("relay")))
		if err != nil {
			return err
		}
		s.log.Info("relay_connected", zap.String("addr", s.cfg.RedisAddr), zap.String("node", s.bus.Node()))
	}

	opt := transport.Options{
		MaxLineSize:      s.cfg.MaxLineSize,
		HandshakeTimeout: s.cfg.HandshakeTimeout,
		ReadTimeout:      s.cfg.ReadTimeout,
		WriteTimeout:     s.cfg.WriteTimeout,
		QueueSize:        s.cfg.QueueSize,
		Overflow:         s.cfg.OverflowPolicy(),
	}
	var lc net.ListenConfig
	for _, port := range s.cfg.Ports {
		ln, err := lc.Listen(ctx, "tcp", s.cfg.ListenAddr(port))
		if err != nil {
			return fmt.Errorf("listen on port %d: %w", port, err)
		}
		// named after the bound port so port 0 still yields distinct rooms
		name := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
		roomOpts := []chat.RoomOption{chat.WithLogger(s.log)}
		if s.bus != nil {
			roomOpts = append(roomOpts, chat.WithPublisher(s.bus.Publisher(name)))
		}
		room := chat.NewRoom(name, s.cfg.HistorySize, roomOpts...)
		s.endpoints = append(s.endpoints, &Endpoint{
			Name:     name,
			Room:     room,
			Listener: transport.NewListener(room, opt, s.log),
			ln:       ln,
		})
	}

	if s.cfg.WSAddr != "" {
		if s.wsLn, err = lc.Listen(ctx, "tcp", s.cfg.WSAddr); err != nil {
			return fmt.Errorf("listen websocket %s: %w", s.cfg.WSAddr, err)
		}
	}
	if s.cfg.MetricsAddr != "" {
		if s.metricsLn, err = lc.Listen(ctx, "tcp", s.cfg.MetricsAddr); err != nil {
			return fmt.Errorf("listen metrics %s: %w", s.cfg.MetricsAddr, err)
		}
	}
	return nil
}

// Endpoints returns the bound endpoints in port order of the config.
func (s *Server) Endpoints() []*Endpoint { return s.endpoints }

// WSAddr returns the bound WebSocket address, or "" when disabled.
func (s *Server) WSAddr() string {
	if s.wsLn == nil {
		return ""
	}
	return s.wsLn.Addr().String()
}

// MetricsAddr returns the bound metrics address, or "" when disabled.
func (s *Server) MetricsAddr() string {
	if s.metricsLn == nil {
		return ""
	}
	return s.metricsLn.Addr().String()
}

// WSHandler routes /ws/<port> to the listener of that port.
func (s *Server) WSHandler() http.Handler {
	mux := http.NewServeMux()
	for _, ep := range s.endpoints {
		mux.Handle("/ws/"+ep.Name, ep.Listener)
	}
	return mux
}

// Run serves until ctx is done or a listener fails, then stops every
// session and waits for them, bounded by the shutdown timeout. Listen is
// called first if it has not been.
func (s *Server) Run(ctx context.Context) error {
	if s.endpoints == nil {
		if err := s.Listen(ctx); err != nil {
			return err
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errc := make(chan error, len(s.endpoints)+3)
	spawn := func(what string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				errc <- fmt.Errorf("%s: %w", what, err)
				cancel()
			}
		}()
	}

	for _, ep := range s.endpoints {
		spawn("tcp "+ep.Addr(), func() error { return ep.Listener.Serve(ctx, ep.ln) })
	}
	if s.wsLn != nil {
		s.log.Info("ws_listen", zap.String("addr", s.WSAddr()))
		spawn("websocket", func() error { return observe.Serve(ctx, s.wsLn, s.WSHandler()) })
	}
	if s.metricsLn != nil {
		s.log.Info("metrics_listen", zap.String("addr", s.MetricsAddr()))
		spawn("metrics", func() error { return observe.StartHTTP(ctx, s.metricsLn) })
	}
	if s.bus != nil {
		spawn("relay", func() error { return s.bus.Run(ctx) })
		for _, ep := range s.endpoints {
			s.bus.Attach(ctx, ep.Room)
		}
	}

	<-ctx.Done()
	s.log.Info("server_stopping")
	s.shutdown()
	wg.Wait()
	close(errc)

	var errs []error
	for err := range errc {
		errs = append(errs, err)
	}
	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			s.log.Debug("relay_close", zap.Error(err))
		}
	}
	s.log.Info("server_stopped")
	return errors.Join(errs...)
}

// shutdown closes every listener concurrently and waits for their sessions.
func (s *Server) shutdown() {
	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for _, ep := range s.endpoints {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ep.Listener.Close()
			}()
		}
		wg.Wait()
		close(done)
	}()

	var timeout <-chan time.Time
	if s.cfg.ShutdownTimeout > 0 {
		timeout = time.After(s.cfg.ShutdownTimeout)
	}
	select {
	case <-done:
	case <-timeout:
		s.log.Warn("shutdown_timeout", zap.Duration("after", s.cfg.ShutdownTimeout))
	}
}

func (s *Server) closeListeners() {
	for _, ep := range s.endpoints {
		_ = ep.ln.Close()
		ep.Listener.Close()
	}
	s.endpoints = nil
	for _, ln := range []net.Listener{s.wsLn, s.metricsLn} {
		if ln != nil {
			_ = ln.Close()
		}
	}
	s.wsLn, s.metricsLn = nil, nil
	if s.bus != nil {
		_ = s.bus.Close()
		s.bus = nil
	}
}
