package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"survey-scoring-service/internal/domain"
	"survey-scoring-service/internal/scoring"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// SurveyStore persists survey definitions (in-memory, Postgres, etc).
type SurveyStore interface {
	LoadSurvey(ctx context.Context, surveyID string) (domain.Survey, error)
	LoadQuestions(ctx context.Context, surveyID string) ([]domain.Question, error)
	LoadResultTiers(ctx context.Context, surveyID string) ([]domain.ResultTier, error)
	// LoadSnapshot reads survey, questions and tiers as one consistent view.
	LoadSnapshot(ctx context.Context, surveyID string) (domain.Snapshot, error)
	FindSurvey(ctx context.Context, title string, category domain.Category) (domain.Survey, error)
	ListSurveys(ctx context.Context, category domain.Category) ([]domain.Survey, error)
	// SaveSurvey writes all three atomically and returns domain.ErrSurveyExists
	// when a survey with the same title and category is already stored.
	SaveSurvey(ctx context.Context, survey domain.Survey, questions []domain.Question, tiers []domain.ResultTier) error
}

// ResponseStore persists scored responses. Responses are append-only.
type ResponseStore interface {
	SaveResponse(ctx context.Context, resp domain.SurveyResponse) error
	LoadResponse(ctx context.Context, responseID string) (domain.SurveyResponse, error)
	// ListResponses returns one page of a user's responses, newest first, and the total count.
	ListResponses(ctx context.Context, userID, surveyID string, page, limit int) ([]domain.SurveyResponse, int, error)
}

// SnapshotRepository serves survey snapshots, usually from a cache in front of a SurveyStore.
type SnapshotRepository interface {
	GetSnapshot(ctx context.Context, surveyID string) (domain.Snapshot, error)
}

// Result is a recorded response together with the configuration it was scored against.
type Result struct {
	Response  domain.SurveyResponse
	Survey    domain.Survey
	Questions []domain.Question
	Tier      domain.ResultTier
}

// SurveyDetail is a survey with its ordered questions.
type SurveyDetail struct {
	Survey    domain.Survey     `json:"survey"`
	Questions []domain.Question `json:"questions"`
}

// HistoryQuery selects a page of a user's responses. SurveyID is optional.
type HistoryQuery struct {
	UserID   string
	SurveyID string
	Page     int
	Limit    int
}

// SurveyService contains the survey scoring use cases.
type SurveyService struct {
	surveys   SurveyStore
	snapshots SnapshotRepository
	responses ResponseStore
	feed      *ResponseFeed
	log       *logrus.Logger
	now       func() time.Time
	newID     func() string
}

func NewSurveyService(surveys SurveyStore, snapshots SnapshotRepository, responses ResponseStore, feed *ResponseFeed, logger *logrus.Logger) *SurveyService {
	return &SurveyService{
		surveys:   surveys,
		snapshots: snapshots,
		responses: responses,
		feed:      feed,
		log:       logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// WithClock replaces the completion clock; used for deterministic timestamps in tests.
func (s *SurveyService) WithClock(now func() time.Time) *SurveyService {
	s.now = now
	return s
}

// ListSurveys returns active surveys, optionally restricted to one category.
func (s *SurveyService) ListSurveys(ctx context.Context, category domain.Category) ([]domain.Survey, error) {
	if category != "" && !category.Valid() {
		return nil, &domain.SubmissionError{Reason: fmt.Sprintf("unknown category %q", category)}
	}
	surveys, err := s.surveys.ListSurveys(ctx, category)
	if err != nil {
		return nil, err
	}
	active := make([]domain.Survey, 0, len(surveys))
	for _, sv := range surveys {
		if sv.Active {
			active = append(active, sv)
		}
	}
	return active, nil
}

// GetSurvey returns a survey with its questions in display order.
func (s *SurveyService) GetSurvey(ctx context.Context, surveyID string) (SurveyDetail, error) {
	snap, err := s.snapshots.GetSnapshot(ctx, surveyID)
	if err != nil {
		return SurveyDetail{}, err
	}
	return SurveyDetail{Survey: snap.Survey, Questions: scoring.OrderQuestions(snap.Questions)}, nil
}

// Submit validates, scores, classifies and records one submission. All steps
// read the same snapshot of the survey's questions and tiers.
func (s *SurveyService) Submit(ctx context.Context, sub domain.Submission) (Result, error) {
	if sub.UserID == "" {
		return Result{}, &domain.SubmissionError{Reason: "userId is required"}
	}

	snap, err := s.snapshots.GetSnapshot(ctx, sub.SurveyID)
	if err != nil {
		return Result{}, err
	}
	if !snap.Survey.Active {
		return Result{}, fmt.Errorf("%w: %s is inactive", domain.ErrSurveyNotFound, sub.SurveyID)
	}
	if len(snap.Questions) == 0 {
		err := &domain.ConfigError{SurveyID: snap.Survey.ID, Problems: []string{"survey has no questions"}}
		s.logConfigError(err)
		return Result{}, err
	}

	answers, err := scoring.ValidateAnswers(snap.Questions, sub.Answers)
	if err != nil {
		return Result{}, err
	}
	total := scoring.TotalScore(answers)

	resolution, err := scoring.NewTierTable(snap.Survey.ID, snap.Tiers).Resolve(total)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"survey_id":   snap.Survey.ID,
			"total_score": total,
			"tiers":       len(snap.Tiers),
		}).Error("Total score matched no result tier")
		return Result{}, err
	}
	if resolution.Ambiguous() {
		s.log.WithFields(logrus.Fields{
			"survey_id":   snap.Survey.ID,
			"total_score": total,
			"matches":     resolution.Matches,
			"tier_id":     resolution.Tier.ID,
		}).Warn("Result tiers overlap; using tier with lowest minimum score")
	}

	resp := domain.SurveyResponse{
		ID:          s.newID(),
		UserID:      sub.UserID,
		SurveyID:    snap.Survey.ID,
		Answers:     answers,
		TotalScore:  total,
		ResultID:    resolution.Tier.ID,
		CompletedAt: s.now(),
	}
	if err := s.responses.SaveResponse(ctx, resp); err != nil {
		return Result{}, fmt.Errorf("save response: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"response_id": resp.ID,
		"survey_id":   resp.SurveyID,
		"user_id":     resp.UserID,
		"total_score": resp.TotalScore,
		"level":       resolution.Tier.Level,
	}).Info("Survey response recorded")

	if s.feed != nil {
		s.feed.Publish(resp)
	}

	return Result{
		Response:  resp,
		Survey:    snap.Survey,
		Questions: scoring.OrderQuestions(snap.Questions),
		Tier:      resolution.Tier,
	}, nil
}

// GetResponse loads a recorded response and the tier it resolved to.
func (s *SurveyService) GetResponse(ctx context.Context, responseID string) (Result, error) {
	resp, err := s.responses.LoadResponse(ctx, responseID)
	if err != nil {
		return Result{}, err
	}
	snap, err := s.snapshots.GetSnapshot(ctx, resp.SurveyID)
	if err != nil {
		return Result{}, err
	}
	tier, ok := snap.Tier(resp.ResultID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", domain.ErrTierNotFound, resp.ResultID)
	}
	return Result{
		Response:  resp,
		Survey:    snap.Survey,
		Questions: scoring.OrderQuestions(snap.Questions),
		Tier:      tier,
	}, nil
}

// History pages through a user's responses, newest first.
func (s *SurveyService) History(ctx context.Context, q HistoryQuery) (domain.Page[domain.SurveyResponse], error) {
	if q.UserID == "" {
		return domain.Page[domain.SurveyResponse]{}, &domain.SubmissionError{Reason: "userId is required"}
	}
	page, limit := normalizePage(q.Page, q.Limit)
	items, total, err := s.responses.ListResponses(ctx, q.UserID, q.SurveyID, page, limit)
	if err != nil {
		return domain.Page[domain.SurveyResponse]{}, fmt.Errorf("list responses: %w", err)
	}
	return domain.NewPage(items, total, page, limit), nil
}

func (s *SurveyService) logConfigError(err error) {
	var cfgErr *domain.ConfigError
	if errors.As(err, &cfgErr) {
		s.log.WithFields(logrus.Fields{
			"survey_id": cfgErr.SurveyID,
			"problems":  cfgErr.Problems,
		}).Error("Survey configuration is invalid")
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return page, limit
}
