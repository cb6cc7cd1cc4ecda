package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/orchestra-mcp/canvas/src/protocol"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	// ErrFeedStopped is returned by Publish before Start or after Stop.
	ErrFeedStopped = errors.New("bridge: event feed not running")
	// ErrFeedFull is returned by Publish when the queue is full. The frame
	// is dropped.
	ErrFeedFull = errors.New("bridge: event queue full")
)

// RedisBridge publishes canvas broadcasts on a Redis pub/sub channel.
// Publish only queues; a single goroutine started by Start talks to Redis.
type RedisBridge struct {
	client     *redis.Client
	channel    string
	instanceID string
	logger     zerolog.Logger

	queue   chan []byte
	timeout time.Duration
	publish func(ctx context.Context, payload []byte) error
	wg      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
	active bool
}

// NewRedisBridge creates a bridge that publishes to Redis.
func NewRedisBridge(cfg *RedisConfig, logger zerolog.Logger) *RedisBridge {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithCancel(context.Background())
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = 256
	}

	b := &RedisBridge{
		client:     client,
		channel:    cfg.Channel(),
		instanceID: uuid.New().String(),
		logger:     logger.With().Str("component", "redis-bridge").Logger(),
		queue:      make(chan []byte, queue),
		timeout:    cfg.PublishTimeout,
		ctx:        ctx,
		cancel:     cancel,
	}
	b.publish = func(ctx context.Context, payload []byte) error {
		return client.Publish(ctx, b.channel, payload).Err()
	}
	return b
}

// InstanceID identifies this server in published events.
func (b *RedisBridge) InstanceID() string { return b.instanceID }

// Start verifies Redis is reachable and starts the publishing goroutine.
func (b *RedisBridge) Start(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return err
	}

	b.mu.Lock()
	if b.active {
		b.mu.Unlock()
		return nil
	}
	b.active = true
	b.wg.Add(1)
	b.mu.Unlock()
	go b.drain()

	b.logger.Info().
		Str("instance_id", b.instanceID).
		Str("channel", b.channel).
		Msg("redis event feed started")
	return nil
}

// Publish queues a frame for the event channel without waiting on Redis.
func (b *RedisBridge) Publish(frame protocol.Frame) error {
	data, err := json.Marshal(Event{InstanceID: b.instanceID, Frame: frame})
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.active {
		return ErrFeedStopped
	}
	select {
	case b.queue <- data:
		return nil
	default:
		return ErrFeedFull
	}
}

// drain publishes queued events until Stop.
func (b *RedisBridge) drain() {
	defer b.wg.Done()
	for {
		select {
		case payload := <-b.queue:
			ctx, cancel := b.ctx, context.CancelFunc(func() {})
			if b.timeout > 0 {
				ctx, cancel = context.WithTimeout(b.ctx, b.timeout)
			}
			err := b.publish(ctx, payload)
			cancel()
			if err != nil && b.ctx.Err() == nil {
				b.logger.Warn().Err(err).Str("channel", b.channel).Msg("event publish failed")
			}
		case <-b.ctx.Done():
			return
		}
	}
}

// Stop ends publishing and closes the Redis connection. Events still
// queued are discarded.
func (b *RedisBridge) Stop() error {
	b.mu.Lock()
	b.active = false
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
	return b.client.Close()
}

// Available reports whether the bridge is connected.
func (b *RedisBridge) Available() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.active
}

// Subscribe consumes the event channel until ctx is done, calling fn for
// every event, including those published by this instance.
func (b *RedisBridge) Subscribe(ctx context.Context, fn EventHandler) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	b.logger.Info().Str("channel", b.channel).Msg("subscribed to event feed")

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.handleRedisMessage(ctx, msg, fn)
		case <-ctx.Done():
			return nil
		}
	}
}

// handleRedisMessage decodes an event and passes it on.
func (b *RedisBridge) handleRedisMessage(ctx context.Context, msg *redis.Message, fn EventHandler) {
	ev, err := decodeEvent([]byte(msg.Payload))
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to decode redis message")
		return
	}
	fn(ctx, ev)
}

func decodeEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}
