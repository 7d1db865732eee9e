package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/poserp/accounting/internal/domain/ledger"
)

const sequenceDayFormat = "2006-01-02"

// GormSequenceAllocator hands out per-organization, per-day sequence numbers
// with a single atomic upsert. Two concurrent allocations for the same scope
// and day resolve on the database row and never observe the same value.
type GormSequenceAllocator struct {
	db *gorm.DB
}

// NewGormSequenceAllocator creates a new GormSequenceAllocator
func NewGormSequenceAllocator(db *gorm.DB) *GormSequenceAllocator {
	return &GormSequenceAllocator{db: db}
}

// Next allocates the next sequence number for the scope and day
func (a *GormSequenceAllocator) Next(ctx context.Context, orgID uuid.UUID, scope string, day time.Time) (int64, error) {
	var value int64
	err := a.db.WithContext(ctx).Raw(
		"INSERT INTO sequence_counters (org_id, scope, day, value) VALUES (?, ?, ?, 1) "+
			"ON CONFLICT (org_id, scope, day) DO UPDATE SET value = sequence_counters.value + 1 "+
			"RETURNING value",
		orgID, scope, day.Format(sequenceDayFormat),
	).Scan(&value).Error
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s sequence: %w", scope, err)
	}
	return value, nil
}

// RedisSequenceAllocator hands out sequence numbers with Redis INCR. Keys
// expire two days after first use; by then the day's numbering is closed.
type RedisSequenceAllocator struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSequenceAllocator creates a new RedisSequenceAllocator
func NewRedisSequenceAllocator(client *redis.Client) *RedisSequenceAllocator {
	return &RedisSequenceAllocator{
		client: client,
		ttl:    48 * time.Hour,
	}
}

// Next allocates the next sequence number for the scope and day
func (a *RedisSequenceAllocator) Next(ctx context.Context, orgID uuid.UUID, scope string, day time.Time) (int64, error) {
	key := fmt.Sprintf("seq:%s:%s:%s", orgID, scope, day.Format(sequenceDayFormat))

	value, err := a.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s sequence: %w", scope, err)
	}
	if value == 1 {
		a.client.Expire(ctx, key, a.ttl)
	}
	return value, nil
}

// Ensure both allocators implement SequenceAllocator
var (
	_ ledger.SequenceAllocator = (*GormSequenceAllocator)(nil)
	_ ledger.SequenceAllocator = (*RedisSequenceAllocator)(nil)
)
