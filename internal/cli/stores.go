package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"survey-scoring-service/internal/app"
	"survey-scoring-service/internal/config"
	"survey-scoring-service/internal/infra/memory"
	"survey-scoring-service/internal/infra/postgres"
	rediscache "survey-scoring-service/internal/infra/redis"
)

type stores struct {
	surveys   app.SurveyStore
	responses app.ResponseStore
	snapshots app.SnapshotRepository
	close     func()
}

// openStores picks Postgres when a URL is configured and the in-memory stores
// otherwise; snapshots are cached in Redis when an address is configured.
func openStores(ctx context.Context, cfg config.Config, log *logrus.Logger) (stores, error) {
	var closers []func()
	s := stores{close: func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}}

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return stores{}, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		s.surveys = postgres.NewSurveyStore(pool)
		s.responses = postgres.NewResponseStore(pool)
		log.Info("Using postgres stores")
	} else {
		s.surveys = memory.NewSurveyStore()
		s.responses = memory.NewResponseStore()
		log.Warn("No postgres url configured; surveys and responses are kept in memory")
	}

	ttl := config.TTLDuration(cfg.Snapshot.TTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			s.close()
			return stores{}, fmt.Errorf("ping redis: %w", err)
		}
		s.snapshots = rediscache.NewSnapshotRepository(client, s.surveys, ttl, log)
	} else {
		s.snapshots = memory.NewSnapshotRepository(s.surveys, ttl)
	}
	return s, nil
}
