package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"survey-scoring-service/internal/domain"
)

// SnapshotLoader fetches survey content from the system of record.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, surveyID string) (domain.Snapshot, error)
}

// SnapshotRepository caches survey snapshots in Redis and falls back to a loader on miss.
// Each snapshot is stored whole as JSON under survey:{surveyID}:snapshot so that
// questions and tiers always come from the same load.
type SnapshotRepository struct {
	client *redis.Client
	loader SnapshotLoader
	ttl    time.Duration
	log    *logrus.Logger
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSnapshotRepository(client *redis.Client, loader SnapshotLoader, ttl time.Duration, logger *logrus.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		log:    logger,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *SnapshotRepository) GetSnapshot(ctx context.Context, surveyID string) (domain.Snapshot, error) {
	if snap, ok := r.lookup(ctx, surveyID); ok {
		return snap, nil
	}

	result, err, _ := r.sf.Do(surveyID, func() (interface{}, error) {
		// another caller may have filled the key while we waited
		if snap, ok := r.lookup(ctx, surveyID); ok {
			return snap, nil
		}

		snap, err := r.loader.LoadSnapshot(ctx, surveyID)
		if err != nil {
			return domain.Snapshot{}, err
		}

		if r.ttl <= 0 {
			return snap, nil
		}
		payload, err := json.Marshal(snap)
		if err != nil {
			return domain.Snapshot{}, err
		}
		if err := r.client.Set(ctx, snapshotKey(surveyID), payload, r.ttlWithJitter()).Err(); err != nil {
			r.log.WithError(err).WithField("survey_id", surveyID).Warn("Failed to cache survey snapshot")
		}
		return snap, nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	return result.(domain.Snapshot), nil
}

// Invalidate removes the cached snapshot for surveyID.
func (r *SnapshotRepository) Invalidate(ctx context.Context, surveyID string) error {
	return r.client.Del(ctx, snapshotKey(surveyID)).Err()
}

func (r *SnapshotRepository) lookup(ctx context.Context, surveyID string) (domain.Snapshot, bool) {
	raw, err := r.client.Get(ctx, snapshotKey(surveyID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.WithError(err).WithField("survey_id", surveyID).Warn("Snapshot cache read failed")
		}
		return domain.Snapshot{}, false
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		r.log.WithError(err).WithField("survey_id", surveyID).Warn("Discarding undecodable cached snapshot")
		return domain.Snapshot{}, false
	}
	return snap, true
}

func snapshotKey(surveyID string) string {
	return "survey:" + surveyID + ":snapshot"
}

func (r *SnapshotRepository) ttlWithJitter() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
