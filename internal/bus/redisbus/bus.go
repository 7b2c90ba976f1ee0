// Package redisbus relays room messages between server processes over Redis
// Pub/Sub, one channel per room. Nothing is stored in Redis; each process
// keeps its own history.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hongjun500/linechat/internal/chat"
	"github.com/hongjun500/linechat/internal/observe"
)

const (
	defaultOutSize = 1024
	retryDelay     = time.Second
)

// Message is the relayed payload.
type Message struct {
	Node string    `json:"node"`
	Room string    `json:"room"`
	When time.Time `json:"when"`
	From string    `json:"from,omitempty"`
	Text string    `json:"text"`
}

type outbound struct {
	channel string
	msg     Message
}

// Bus publishes local broadcasts and injects remote ones.
type Bus struct {
	cli    redis.UniversalClient
	prefix string
	node   string
	log    *zap.Logger

	out chan outbound
	wg  sync.WaitGroup
}

// Option configures a Bus.
type Option func(*Bus)

func WithLogger(l *zap.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.log = l
		}
	}
}

// WithBuffer sets how many messages may wait for the publish worker.
func WithBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.out = make(chan outbound, n)
		}
	}
}

// New creates a bus on cli. Channels are named "<prefix>:<room>".
func New(cli redis.UniversalClient, prefix string, opts ...Option) *Bus {
	b := &Bus{
		cli:    cli,
		prefix: prefix,
		node:   uuid.NewString(),
		log:    zap.NewNop(),
		out:    make(chan outbound, defaultOutSize),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With(zap.String("node", b.node))
	return b
}

// Dial connects to the Redis server at addr and checks it with PING.
func Dial(ctx context.Context, addr, prefix string, opts ...Option) (*Bus, error) {
	cli := redis.NewClient(&redis.Options{Addr: addr})
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return New(cli, prefix, opts...), nil
}

// Node returns this process's relay identity.
func (b *Bus) Node() string { return b.node }

// Channel returns the Pub/Sub channel for room.
func (b *Bus) Channel(room string) string { return b.prefix + ":" + room }

// Publisher returns the chat.Publisher for room.
func (b *Bus) Publisher(room string) chat.Publisher {
	return roomPublisher{bus: b, room: room}
}

type roomPublisher struct {
	bus  *Bus
	room string
}

// Publish hands m to the publish worker. It never blocks; when the worker
// is behind, the message is only delivered locally.
func (p roomPublisher) Publish(m chat.Message) {
	o := outbound{
		channel: p.bus.Channel(p.room),
		msg:     Message{Node: p.bus.node, Room: p.room, When: m.At, From: m.From, Text: m.Text},
	}
	select {
	case p.bus.out <- o:
	default:
		observe.IncRelayError()
		p.bus.log.Warn("relay_queue_full", zap.String("room", p.room))
	}
}

// Run drives the publish worker until ctx is done.
func (b *Bus) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case o := <-b.out:
			if err := b.publish(ctx, o); err != nil && ctx.Err() == nil {
				observe.IncRelayError()
				b.log.Warn("relay_publish_error", zap.String("channel", o.channel), zap.Error(err))
			}
		}
	}
}

func (b *Bus) publish(ctx context.Context, o outbound) error {
	payload, err := json.Marshal(o.msg)
	if err != nil {
		return err
	}
	return b.cli.Publish(ctx, o.channel, payload).Err()
}

// Consume subscribes to the room's channel and injects every message
// published by another node into room. It blocks until ctx is done and
// resubscribes after failures.
func (b *Bus) Consume(ctx context.Context, room *chat.Room) error {
	channel := b.Channel(room.Name())
	for {
		err := b.subscribe(ctx, channel, room)
		if ctx.Err() != nil {
			return nil
		}
		observe.IncRelayError()
		b.log.Warn("relay_subscribe_error", zap.String("channel", channel), zap.Error(err))
		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil
		}
	}
}

func (b *Bus) subscribe(ctx context.Context, channel string, room *chat.Room) error {
	ps := b.cli.Subscribe(ctx, channel)
	defer ps.Close()
	// the first reply confirms the subscription
	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	b.log.Debug("relay_subscribed", zap.String("channel", channel))
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription to %s closed", channel)
			}
			b.handle(room, m.Payload)
		}
	}
}

// handle decodes one payload and injects it unless this node sent it.
func (b *Bus) handle(room *chat.Room, payload string) {
	var m Message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		observe.IncRelayError()
		b.log.Debug("relay_decode_error", zap.Error(err))
		return
	}
	if m.Node == b.node {
		return
	}
	room.Inject(chat.Message{From: m.From, Text: m.Text, At: m.When})
}

// Attach starts consuming room's channel in the background until ctx is
// done.
func (b *Bus) Attach(ctx context.Context, room *chat.Room) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		_ = b.Consume(ctx, room)
	}()
}

// Close waits for attached consumers, whose context must already be done,
// and closes the client.
func (b *Bus) Close() error {
	b.wg.Wait()
	return b.cli.Close()
}
