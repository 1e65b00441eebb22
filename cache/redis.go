package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanCount = 100

// Redis shares cached entries between processes. Every key is stored under the prefix so
// Purge only removes this cache's entries.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// DialRedis connects to the server at addr and verifies it responds
func DialRedis(ctx context.Context, addr, password string, db int, prefix string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to connect to redis at %s, %w", addr, err)
	}
	return NewRedis(client, prefix, ttl), nil
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("unable to get %s, %w", key, err)
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, val []byte) error {
	if err := r.client.Set(ctx, r.key(key), val, r.ttl).Err(); err != nil {
		return fmt.Errorf("unable to set %s, %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("unable to delete %s, %w", key, err)
	}
	return nil
}

// Purge removes every key under the prefix. The full scan completes before any key is
// deleted so cursor based iteration never skips entries.
func (r *Redis) Purge(ctx context.Context) error {
	var (
		cursor uint64
		keys   []string
	)
	for {
		page, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", scanCount).Result()
		if err != nil {
			return fmt.Errorf("unable to scan %s*, %w", r.prefix, err)
		}
		keys = append(keys, page...)
		if next == 0 {
			break
		}
		cursor = next
	}

	for lo := 0; lo < len(keys); lo += scanCount {
		batch := keys[lo:min(lo+scanCount, len(keys))]
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("unable to delete %d keys, %w", len(batch), err)
		}
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
