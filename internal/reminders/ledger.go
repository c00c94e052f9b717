package reminders

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ledgerRetention keeps fired markers a while past the window deadline.
const ledgerRetention = 24 * time.Hour

// MemoryLedger is a process-local fired ledger.
type MemoryLedger struct {
	mu    sync.Mutex
	fired map[string]time.Time
	now   func() time.Time
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger(now func() time.Time) *MemoryLedger {
	if now == nil {
		now = time.Now
	}
	return &MemoryLedger{fired: make(map[string]time.Time), now: now}
}

func (l *MemoryLedger) MarkFired(_ context.Context, r Reminder) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune()
	id := r.ID()
	if _, ok := l.fired[id]; ok {
		return false, nil
	}
	l.fired[id] = r.Deadline.Add(ledgerRetention)
	return true, nil
}

func (l *MemoryLedger) WasFired(_ context.Context, r Reminder) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.fired[r.ID()]
	return ok, nil
}

func (l *MemoryLedger) prune() {
	now := l.now()
	for id, expires := range l.fired {
		if now.After(expires) {
			delete(l.fired, id)
		}
	}
}

// RedisLedger shares the fired ledger between processes with SETNX.
type RedisLedger struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisLedger creates a ledger storing markers under prefix.
func NewRedisLedger(client redis.UniversalClient, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = "procurement:reminders:fired:"
	}
	return &RedisLedger{client: client, prefix: prefix}
}

func (l *RedisLedger) MarkFired(ctx context.Context, r Reminder) (bool, error) {
	ttl := time.Until(r.Deadline.Add(ledgerRetention))
	if ttl <= 0 {
		ttl = time.Minute
	}
	return l.client.SetNX(ctx, l.prefix+r.ID(), 1, ttl).Result()
}

func (l *RedisLedger) WasFired(ctx context.Context, r Reminder) (bool, error) {
	n, err := l.client.Exists(ctx, l.prefix+r.ID()).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
