package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

// RedisSource subscribes to a pub/sub channel and yields its events.
type RedisSource struct {
	rdb     *redis.Client
	channel string

	once   sync.Once
	pubsub *redis.PubSub
	stop   chan struct{}
}

var _ Source = (*RedisSource)(nil)

func NewRedisSource(rdb *redis.Client, channel string) *RedisSource {
	return &RedisSource{rdb: rdb, channel: channel, stop: make(chan struct{})}
}

func (s *RedisSource) subscribe(ctx context.Context) {
	s.once.Do(func() {
		s.pubsub = s.rdb.Subscribe(ctx, s.channel)
		// Receive does not observe cancellation, so closing the
		// subscription is what unblocks it.
		go func() {
			select {
			case <-ctx.Done():
				_ = s.pubsub.Close()
			case <-s.stop:
			}
		}()
	})
}

func (s *RedisSource) Next(ctx context.Context) (Record, error) {
	s.subscribe(ctx)

	msg, err := s.pubsub.Receive(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Record{}, ctx.Err()
		}
		return Record{}, fmt.Errorf("receive from channel %s: %w", s.channel, err)
	}

	switch m := msg.(type) {
	case *redis.Subscription:
		return Record{Kind: m.Kind, Channel: m.Channel}, nil
	case *redis.Message:
		logger.Info(ctx, "Received event", "channel", m.Channel, "payload", m.Payload)
		return Record{Kind: KindMessage, Channel: m.Channel, Payload: m.Payload, Format: FormatJSON}, nil
	case *redis.Pong:
		return Record{Kind: "pong", Channel: s.channel, Payload: m.Payload}, nil
	default:
		return Record{Kind: fmt.Sprintf("%T", msg), Channel: s.channel}, nil
	}
}

func (s *RedisSource) Close() error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	if s.pubsub != nil {
		return s.pubsub.Close()
	}
	return nil
}

// RedisPublisher publishes sentiment envelopes fire-and-forget.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

var _ Sink = (*RedisPublisher)(nil)

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Write(ctx context.Context, event types.SentimentEvent) error {
	payload, err := EncodeEnvelope(event)
	if err != nil {
		return err
	}
	logger.Info(ctx, "Push event", "channel", p.channel, "payload", payload)
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.channel, err)
	}
	return nil
}

// Close is a no-op; the redis client is owned by the caller.
func (p *RedisPublisher) Close() error { return nil }
