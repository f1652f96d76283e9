// Package store persists the last order identifier a visitor resolved, so the order page can be
// recovered on a later visit that carries no identifier.
package store

import (
	"context"
	"fmt"
	"time"
)

// Store is a small string key/value store. Get returns "" and no error for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Options selects and configures a store driver
type Options struct {
	Driver      string
	RedisURL    string
	DatabaseURL string
	TTL         time.Duration
}

// Open creates the store for the configured driver
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", "memory":
		return NewMemory(opts.TTL), nil
	case "redis":
		return NewRedis(ctx, opts.RedisURL, opts.TTL)
	case "sqlite", "postgres":
		return OpenSQL(ctx, opts.Driver, opts.DatabaseURL, opts.TTL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

// LastOrderKey is the key holding a visitor's last resolved order identifier
func LastOrderKey(visitor string) string {
	return "last_order_id:" + visitor
}
