package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"mindful-paint/internal/logger"
)

// Envelope carries one room delivery between relay instances.
type Envelope struct {
	Origin   string `msgpack:"origin"`
	Sender   string `msgpack:"sender"`
	Room     string `msgpack:"room"`
	Frame    []byte `msgpack:"frame"`
	ToSender bool   `msgpack:"to_sender"`
}

// Bus fans room deliveries out across relay instances.
type Bus interface {
	Publish(ctx context.Context, env Envelope) error
	// Subscribe blocks, calling fn for every envelope, until ctx is done.
	Subscribe(ctx context.Context, fn func(Envelope)) error
	Close() error
}

// EncodeEnvelope serialises an envelope for the wire.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	return msgpack.Marshal(env)
}

// DecodeEnvelope is the inverse of EncodeEnvelope.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// RedisOptions selects the redis server used by RedisBus.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisBus publishes every room on its own redis pub/sub channel.
type RedisBus struct {
	rdb    *redis.Client
	prefix string
	log    *slog.Logger
}

// NewRedisBus connects to redis and checks the connection.
func NewRedisBus(ctx context.Context, opts RedisOptions, log *slog.Logger) (*RedisBus, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", opts.Addr, err)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "paint"
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisBus{rdb: rdb, prefix: prefix, log: log}, nil
}

// Channel returns the pub/sub channel of a room.
func (b *RedisBus) Channel(roomID string) string {
	return roomChannel(b.prefix, roomID)
}

func roomChannel(prefix, roomID string) string {
	return prefix + ":room:" + roomID
}

func (b *RedisBus) Publish(ctx context.Context, env Envelope) error {
	data, err := EncodeEnvelope(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return b.rdb.Publish(ctx, b.Channel(env.Room), data).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, fn func(Envelope)) error {
	pubsub := b.rdb.PSubscribe(ctx, roomChannel(b.prefix, "*"))
	defer pubsub.Close()

	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			env, err := DecodeEnvelope([]byte(msg.Payload))
			if err != nil {
				b.log.Warn("could not decode bus envelope", "channel", msg.Channel, logger.Err(err))
				continue
			}
			fn(env)
		}
	}
}

func (b *RedisBus) Close() error {
	return b.rdb.Close()
}
