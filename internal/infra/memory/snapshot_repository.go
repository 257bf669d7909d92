package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"survey-scoring-service/internal/domain"
)

// SnapshotLoader fetches a survey snapshot from a backing store.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, surveyID string) (domain.Snapshot, error)
}

// SnapshotRepository caches survey snapshots with TTL to avoid repeated store hits.
// A snapshot is cached as a whole so readers never mix questions and tiers from
// different loads. Load errors are not cached.
type SnapshotRepository struct {
	loader SnapshotLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedSnapshot
}

type cachedSnapshot struct {
	snapshot  domain.Snapshot
	expiresAt time.Time
}

func NewSnapshotRepository(loader SnapshotLoader, ttl time.Duration) *SnapshotRepository {
	return &SnapshotRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSnapshot),
	}
}

func (r *SnapshotRepository) GetSnapshot(ctx context.Context, surveyID string) (domain.Snapshot, error) {
	if snap, ok := r.lookup(surveyID); ok {
		return snap, nil
	}

	result, err, _ := r.sf.Do(surveyID, func() (interface{}, error) {
		if snap, ok := r.lookup(surveyID); ok {
			return snap, nil
		}

		snap, err := r.loader.LoadSnapshot(ctx, surveyID)
		if err != nil {
			return domain.Snapshot{}, err
		}
		if r.ttl <= 0 {
			return snap, nil
		}

		r.mu.Lock()
		r.cache[surveyID] = cachedSnapshot{
			snapshot:  snap,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	return result.(domain.Snapshot), nil
}

// Invalidate drops a cached snapshot so the next read reloads it.
func (r *SnapshotRepository) Invalidate(surveyID string) {
	r.mu.Lock()
	delete(r.cache, surveyID)
	r.mu.Unlock()
}

func (r *SnapshotRepository) lookup(surveyID string) (domain.Snapshot, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[surveyID]; ok && entry.expiresAt.After(now) {
		return entry.snapshot, true
	}
	return domain.Snapshot{}, false
}

func (r *SnapshotRepository) ttlWithJitterLocked() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
