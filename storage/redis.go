package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/redis/go-redis/v9"
	"github.com/ruteri/holder-address-registry/interfaces"
)

const defaultRedisKey = "holder_address_registry:registrations"

// appendScript sets the hash field only if absent and records insertion order.
// Returns 1 when the registration was inserted, 0 on conflict.
var appendScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 1 then
	redis.call('RPUSH', KEYS[2], ARGV[1])
	return 1
end
return 0
`)

// RedisBackend stores registrations in a Redis hash (primary -> secondary) and
// keeps insertion order in a companion list.
type RedisBackend struct {
	client      *redis.Client
	hashKey     string
	orderKey    string
	log         *slog.Logger
	locationURI string
}

// NewRedisBackend connects to Redis. The optional "key" query parameter names
// the hash; it is stripped before the URL is handed to the client.
func NewRedisBackend(ctx context.Context, u *url.URL, log *slog.Logger) (*RedisBackend, error) {
	query := u.Query()
	key := query.Get("key")
	if key == "" {
		key = defaultRedisKey
	}
	query.Del("key")

	clean := *u
	clean.RawQuery = query.Encode()

	opts, err := redis.ParseURL(clean.String())
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisBackend{
		client:      client,
		hashKey:     key,
		orderKey:    key + ":order",
		log:         log,
		locationURI: u.Redacted(),
	}, nil
}

func (b *RedisBackend) Lookup(ctx context.Context, primaryAddress string) (interfaces.Registration, error) {
	secondary, err := b.client.HGet(ctx, b.hashKey, primaryAddress).Result()
	if errors.Is(err, redis.Nil) {
		return interfaces.Registration{}, interfaces.ErrNotFound
	}
	if err != nil {
		return interfaces.Registration{}, fmt.Errorf("failed to read registration: %w", err)
	}
	return interfaces.Registration{PrimaryAddress: primaryAddress, SecondaryAddress: secondary}, nil
}

func (b *RedisBackend) Append(ctx context.Context, reg interfaces.Registration) error {
	inserted, err := appendScript.Run(ctx, b.client, []string{b.hashKey, b.orderKey}, reg.PrimaryAddress, reg.SecondaryAddress).Int()
	if err != nil {
		return fmt.Errorf("failed to insert registration: %w", err)
	}
	if inserted == 1 {
		return nil
	}

	existing, err := b.Lookup(ctx, reg.PrimaryAddress)
	if err != nil {
		return fmt.Errorf("insert conflicted but existing entry is unreadable: %w", err)
	}
	return &interfaces.ConflictError{PrimaryAddress: reg.PrimaryAddress, Existing: existing.SecondaryAddress}
}

func (b *RedisBackend) All(ctx context.Context) ([]interfaces.Registration, error) {
	order, err := b.client.LRange(ctx, b.orderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	if len(order) == 0 {
		return nil, nil
	}

	values, err := b.client.HMGet(ctx, b.hashKey, order...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}

	records := make([]interfaces.Registration, 0, len(order))
	for i, primary := range order {
		secondary, ok := values[i].(string)
		if !ok {
			b.log.Warn("Order list references missing registration", slog.String("primaryAddress", primary))
			continue
		}
		records = append(records, interfaces.Registration{PrimaryAddress: primary, SecondaryAddress: secondary})
	}
	return records, nil
}

func (b *RedisBackend) Available(ctx context.Context) bool {
	if err := b.client.Ping(ctx).Err(); err != nil {
		b.log.Warn("Redis backend unavailable", "err", err)
		return false
	}
	return true
}

func (b *RedisBackend) Name() string {
	return "redis"
}

func (b *RedisBackend) LocationURI() string {
	return b.locationURI
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
