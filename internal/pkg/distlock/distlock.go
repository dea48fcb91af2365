// Package distlock provides the per-campaign dispatch lease. A scheduler
// sweep must claim a campaign's lease before invoking dispatch; overlapping
// sweeps (or a second process) that fail to claim it skip the campaign, so
// a slow dispatch can never be started twice.
//
// Redis is the preferred backend when configured. Without Redis the lease
// falls back to PostgreSQL advisory locks, which are session-scoped and
// therefore released automatically if the holder's connection drops.
package distlock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock is a single-use exclusive claim. A Lock instance belongs to one
// goroutine; concurrent claims need separate instances.
type Lock interface {
	// Acquire tries to claim the lease. Returns false without error when
	// another holder already owns it.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lease back if this instance still owns it.
	Release(ctx context.Context) error
}

// Factory builds leases for dispatch keys. The scheduler holds one factory
// and mints a fresh lease per campaign per sweep.
type Factory struct {
	redisClient *redis.Client // nil falls back to PG advisory locks
	db          *sql.DB
	ttl         time.Duration
}

// NewFactory creates a lease factory. ttl bounds how long a crashed holder
// can keep a Redis lease; it is ignored by the advisory-lock fallback.
func NewFactory(redisClient *redis.Client, db *sql.DB, ttl time.Duration) *Factory {
	return &Factory{redisClient: redisClient, db: db, ttl: ttl}
}

// CampaignLease returns the dispatch lease for one campaign.
func (f *Factory) CampaignLease(campaignID string) Lock {
	key := fmt.Sprintf("dispatch:campaign:%s", campaignID)
	if f.redisClient != nil {
		return NewRedisLock(f.redisClient, key, f.ttl)
	}
	return NewPGAdvisoryLock(f.db, key)
}

// ReminderLease returns the lease guarding one day's reminder scan, so two
// processes (or a restart) do not repeat a scan already in flight.
func (f *Factory) ReminderLease(day string) Lock {
	key := fmt.Sprintf("dispatch:reminders:%s", day)
	if f.redisClient != nil {
		return NewRedisLock(f.redisClient, key, f.ttl)
	}
	return NewPGAdvisoryLock(f.db, key)
}

// PGAdvisoryLock implements Lock using pg_try_advisory_lock with a lock id
// derived from the key. Session scope gives crash-safety similar to a
// Redis TTL: the lock vanishes with the connection. The lock pins one
// pooled connection from Acquire to Release — advisory locks belong to a
// session, so acquire and unlock must run on the same connection or the
// unlock silently no-ops.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
	conn   *sql.Conn // held between a successful Acquire and Release
}

// NewPGAdvisoryLock creates an advisory lock with a deterministic id
// hashed from the key.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

// Acquire tries to take the advisory lock without blocking.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire advisory lock: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release unlocks on the pinned connection and returns it to the pool.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	closeErr := l.conn.Close()
	l.conn = nil
	if err != nil {
		return fmt.Errorf("release advisory lock: %w", err)
	}
	return closeErr
}
