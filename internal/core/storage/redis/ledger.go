// Package redis provides a Redis-backed idempotency ledger. Entries carry a
// TTL, so retention is enforced by the store itself rather than a sweeper.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pulse-lab/pulse-reports/internal/core/storage"
)

const defaultKeyPrefix = "pulse:processed:"

// Ledger records processed event ids as SETNX keys. It implements
// storage.Ledger but not storage.AtomicCommitter: it cannot join a report
// store transaction, so callers must mark after the indicator write.
type Ledger struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewLedger connects to addr and verifies the connection. A zero ttl keeps
// entries forever.
func NewLedger(addr, password string, db int, ttl time.Duration) (*Ledger, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("[RedisLedger] Connected", "addr", addr, "ttl", ttl)
	return &Ledger{client: client, prefix: defaultKeyPrefix, ttl: ttl}, nil
}

// NewLedgerWithClient wraps an existing client, mainly for tests.
func NewLedgerWithClient(client *redis.Client, ttl time.Duration) *Ledger {
	return &Ledger{client: client, prefix: defaultKeyPrefix, ttl: ttl}
}

func (l *Ledger) key(eventID string) string {
	return l.prefix + eventID
}

// IsProcessed reports whether the event id has a live ledger entry.
func (l *Ledger) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, storage.ErrEmptyEventID
	}

	n, err := l.client.Exists(ctx, l.key(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n == 1, nil
}

// MarkProcessed claims the event id with SETNX. Only the first caller for a
// given id observes applied=true; everyone else lost the race.
func (l *Ledger) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, storage.ErrEmptyEventID
	}

	applied, err := l.client.SetNX(ctx, l.key(eventID), time.Now().UTC().Format(time.RFC3339Nano), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return applied, nil
}

// Close releases the underlying connection pool.
func (l *Ledger) Close() error {
	return l.client.Close()
}
