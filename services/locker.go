package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bellapacxx/bingo-live/models"
)

// Locker hands out short lived named locks. TryLock never waits: when the key
// is held it returns ErrBusy. The returned release func is safe to call more
// than once.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// -------------------- In-process --------------------

type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryLease
	clock func() time.Time
}

type memoryLease struct {
	owner   string
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]memoryLease), clock: time.Now}
}

func (l *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if lease, ok := l.held[key]; ok && now.Before(lease.expires) {
		return nil, fmt.Errorf("%w: %s", ErrBusy, key)
	}
	owner := uuid.NewString()
	l.held[key] = memoryLease{owner: owner, expires: now.Add(ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.held[key].owner == owner {
				delete(l.held, key)
			}
		})
	}, nil
}

// -------------------- Database --------------------

// DBLocker keeps locks in the advisory_locks table so every instance sees
// them. Expired rows are reclaimed by the next TryLock on the same key.
type DBLocker struct {
	db    *gorm.DB
	clock func() time.Time
}

func NewDBLocker(db *gorm.DB) *DBLocker {
	return &DBLocker{db: db, clock: time.Now}
}

func (l *DBLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	now := l.clock()
	owner := uuid.NewString()

	var acquired bool
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("name = ? AND expires_at <= ?", key, now).Delete(&models.AdvisoryLock{}).Error; err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.AdvisoryLock{
			Name:      key,
			Owner:     owner,
			ExpiresAt: now.Add(ttl),
		})
		if res.Error != nil {
			return res.Error
		}
		acquired = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		// fail closed
		return nil, fmt.Errorf("%w: %s: %v", ErrBusy, key, err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s", ErrBusy, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's context may already be done
			err := l.db.Where("name = ? AND owner = ?", key, owner).Delete(&models.AdvisoryLock{}).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Warnw("release advisory lock", "key", key, "error", err)
			}
		})
	}, nil
}
