// Package bus implements the app server's concrete bus port over Redis,
// grounded on the teacher's internal/v1/bus/redis.go (Service wraps
// *redis.Client behind a gobreaker circuit breaker, graceful degradation
// returning nil on ErrOpenState) and extended with the List ops
// (LPush/LTrim/LRange) spec.md §4.11/§6/§9 require for bounded per-room
// history — absent from the original app server's clients/redis.rs, which
// only stubbed them.
package bus

import (
	"context"
	"time"

	"github.com/sindrigils/chatroom/internal/appserver/types"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// Service is the Redis-backed bus adapter.
type Service struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
}

// New parses redisURL (redis://host:port[/db]), connects, and wires a circuit
// breaker around every call, matching the teacher's NewService settings (5
// max half-open requests, 1m interval, 15s open timeout).
func New(redisURL string) (*Service, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-bus",
		MaxRequests: 5,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
	})

	return &Service{client: client, breaker: breaker}, nil
}

// NewFromClient wraps an existing *redis.Client (used by tests against miniredis).
func NewFromClient(client *redis.Client) *Service {
	return &Service{
		client: client,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "redis-bus",
			MaxRequests: 5,
			Interval:    time.Minute,
			Timeout:     15 * time.Second,
		}),
	}
}

// Publish publishes payload to channel, degrading gracefully (returning nil)
// when the breaker is open rather than propagating an error up into presence
// bookkeeping, per spec.md §4.11's "bus publish failures are non-fatal".
func (s *Service) Publish(ctx context.Context, channel, payload string) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Publish(ctx, channel, payload).Err()
	})
	if err == gobreaker.ErrOpenState {
		return nil
	}
	return err
}

// ListPush pushes value onto the head of key and trims the list to trimTo
// entries, implementing the bounded `chat_messages:{roomId}` history list.
func (s *Service) ListPush(ctx context.Context, key, value string, trimTo int) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		pipe := s.client.TxPipeline()
		pipe.LPush(ctx, key, value)
		pipe.LTrim(ctx, key, 0, int64(trimTo-1))
		_, err := pipe.Exec(ctx)
		return nil, err
	})
	if err == gobreaker.ErrOpenState {
		return nil
	}
	return err
}

// ListRange returns entries [start, stop] from key, newest first.
func (s *Service) ListRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.LRange(ctx, key, start, stop).Result()
	})
	if err == gobreaker.ErrOpenState {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// redisSubscription adapts *redis.PubSub to types.Subscription.
type redisSubscription struct {
	pubsub *redis.PubSub
	out    chan string
	cancel context.CancelFunc
}

func (r *redisSubscription) Channel() <-chan string { return r.out }

func (r *redisSubscription) Close() error {
	r.cancel()
	return r.pubsub.Close()
}

// Subscribe opens a pub/sub connection and relays payloads verbatim onto the
// returned Subscription's channel until Close is called, grounded on the
// per-socket subscriber task in the original app server's ws/chat.rs.
func (s *Service) Subscribe(ctx context.Context, channel string) (types.Subscription, error) {
	pubsub := s.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &redisSubscription{pubsub: pubsub, out: make(chan string, 16), cancel: cancel}

	go func() {
		defer close(sub.out)
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case sub.out <- msg.Payload:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return sub, nil
}

var _ types.BusService = (*Service)(nil)
