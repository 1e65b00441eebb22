// Package cache stores serialized fits and backtest reports keyed by a content fingerprint so
// repeated requests for the same series and configuration skip the refit.
package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Store is a byte cache with explicit invalidation. Implementations are safe for concurrent
// use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, key string) error
	Purge(ctx context.Context) error
}

// Key hashes the parts into a fixed width key. Parts are separated so ("ab", "c") and
// ("a", "bc") differ.
func Key(parts ...string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(strings.Join(parts, "\x00")))
}
