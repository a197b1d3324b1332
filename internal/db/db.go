// Package db defines the key-value store contract backing the result cache.
package db

import (
	"context"
	"time"
)

// Store is the cache store facade combining all sub-interfaces.
type Store interface {
	Pinger
	KVStore
	InfoReader
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides TTL-aware key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	DelMulti(ctx context.Context, keys []string) (int, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// ServerInfo holds a snapshot of store-side statistics (Redis INFO).
type ServerInfo struct {
	UsedMemoryHuman        string
	ConnectedClients       int64
	TotalCommandsProcessed int64
	KeyspaceHits           int64
	KeyspaceMisses         int64
}

// InfoReader exposes server statistics for the cache admin surface.
type InfoReader interface {
	Info(ctx context.Context) (*ServerInfo, error)
}
