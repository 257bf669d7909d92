package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"survey-scoring-service/internal/catalog"
	"survey-scoring-service/internal/domain"
	"survey-scoring-service/internal/scoring"
)

// SeedResult reports the survey matching a definition and whether this call created it.
type SeedResult struct {
	Survey  domain.Survey
	Created bool
}

// Bootstrapper seeds survey definitions exactly once per (title, category).
type Bootstrapper struct {
	store SurveyStore
	log   *logrus.Logger
	now   func() time.Time
	newID func() string
}

func NewBootstrapper(store SurveyStore, logger *logrus.Logger) *Bootstrapper {
	return &Bootstrapper{
		store: store,
		log:   logger,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// SeedCanonical seeds the built-in exercise habits survey.
func (b *Bootstrapper) SeedCanonical(ctx context.Context) (SeedResult, error) {
	return b.Seed(ctx, catalog.ExerciseHabits())
}

// Seed creates the survey described by def unless one with the same title and
// category exists. The definition is checked before anything is written; an
// invalid tier table rejects the whole seed.
func (b *Bootstrapper) Seed(ctx context.Context, def catalog.Definition) (SeedResult, error) {
	existing, err := b.store.FindSurvey(ctx, def.Title, def.Category)
	if err == nil {
		b.log.WithFields(logrus.Fields{
			"survey_id": existing.ID,
			"title":     existing.Title,
		}).Info("Survey already exists; skipping seed")
		return SeedResult{Survey: existing}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return SeedResult{}, fmt.Errorf("find survey: %w", err)
	}

	snap := def.Build(b.newID, b.now())
	if err := scoring.CheckSurvey(snap); err != nil {
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			b.log.WithFields(logrus.Fields{
				"title":    def.Title,
				"category": def.Category,
				"problems": cfgErr.Problems,
			}).Error("Rejecting survey seed with invalid configuration")
		}
		return SeedResult{}, err
	}

	if err := b.store.SaveSurvey(ctx, snap.Survey, snap.Questions, snap.Tiers); err != nil {
		if !errors.Is(err, domain.ErrSurveyExists) {
			return SeedResult{}, fmt.Errorf("save survey: %w", err)
		}
		// Lost a race with a concurrent seed.
		existing, ferr := b.store.FindSurvey(ctx, def.Title, def.Category)
		if ferr != nil {
			return SeedResult{}, fmt.Errorf("find survey: %w", ferr)
		}
		return SeedResult{Survey: existing}, nil
	}

	b.log.WithFields(logrus.Fields{
		"survey_id": snap.Survey.ID,
		"title":     snap.Survey.Title,
		"questions": len(snap.Questions),
		"tiers":     len(snap.Tiers),
	}).Info("Survey seeded")
	return SeedResult{Survey: snap.Survey, Created: true}, nil
}
