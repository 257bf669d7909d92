package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"survey-scoring-service/internal/domain"
)

type surveyKey struct {
	title    string
	category domain.Category
}

// SurveyStore is an in-memory implementation of app.SurveyStore. Values are
// copied on the way in and out so callers never share slices with the store.
type SurveyStore struct {
	mu        sync.RWMutex
	surveys   map[string]domain.Survey
	order     []string
	questions map[string][]domain.Question
	tiers     map[string][]domain.ResultTier
	identity  map[surveyKey]string
}

func NewSurveyStore() *SurveyStore {
	return &SurveyStore{
		surveys:   make(map[string]domain.Survey),
		questions: make(map[string][]domain.Question),
		tiers:     make(map[string][]domain.ResultTier),
		identity:  make(map[surveyKey]string),
	}
}

func (s *SurveyStore) LoadSurvey(_ context.Context, surveyID string) (domain.Survey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	survey, ok := s.surveys[surveyID]
	if !ok {
		return domain.Survey{}, fmt.Errorf("%w: %s", domain.ErrSurveyNotFound, surveyID)
	}
	return survey, nil
}

func (s *SurveyStore) LoadQuestions(_ context.Context, surveyID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.surveys[surveyID]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSurveyNotFound, surveyID)
	}
	return copyQuestions(s.questions[surveyID]), nil
}

func (s *SurveyStore) LoadResultTiers(_ context.Context, surveyID string) ([]domain.ResultTier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.surveys[surveyID]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSurveyNotFound, surveyID)
	}
	return copyTiers(s.tiers[surveyID]), nil
}

// LoadSnapshot copies survey, questions and tiers under one read lock.
func (s *SurveyStore) LoadSnapshot(_ context.Context, surveyID string) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	survey, ok := s.surveys[surveyID]
	if !ok {
		return domain.Snapshot{}, fmt.Errorf("%w: %s", domain.ErrSurveyNotFound, surveyID)
	}
	return domain.Snapshot{
		Survey:    survey,
		Questions: copyQuestions(s.questions[surveyID]),
		Tiers:     copyTiers(s.tiers[surveyID]),
	}, nil
}

func (s *SurveyStore) FindSurvey(_ context.Context, title string, category domain.Category) (domain.Survey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.identity[surveyKey{title: title, category: category}]
	if !ok {
		return domain.Survey{}, fmt.Errorf("%w: %q (%s)", domain.ErrSurveyNotFound, title, category)
	}
	return s.surveys[id], nil
}

// ListSurveys returns surveys in creation order, filtered by category when set.
func (s *SurveyStore) ListSurveys(_ context.Context, category domain.Category) ([]domain.Survey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Survey, 0, len(s.order))
	for _, id := range s.order {
		survey := s.surveys[id]
		if category != "" && survey.Category != category {
			continue
		}
		out = append(out, survey)
	}
	return out, nil
}

// SaveSurvey checks identity and inserts under one write lock, so concurrent
// saves of the same (title, category) create exactly one survey.
func (s *SurveyStore) SaveSurvey(_ context.Context, survey domain.Survey, questions []domain.Question, tiers []domain.ResultTier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := surveyKey{title: survey.Title, category: survey.Category}
	if _, exists := s.identity[key]; exists {
		return domain.ErrSurveyExists
	}
	if _, exists := s.surveys[survey.ID]; exists {
		return fmt.Errorf("survey id %s already used", survey.ID)
	}

	ordered := copyQuestions(questions)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	s.surveys[survey.ID] = survey
	s.order = append(s.order, survey.ID)
	s.questions[survey.ID] = ordered
	s.tiers[survey.ID] = copyTiers(tiers)
	s.identity[key] = survey.ID
	return nil
}

func copyQuestions(in []domain.Question) []domain.Question {
	out := make([]domain.Question, len(in))
	for i, q := range in {
		q.Options = append([]domain.Option(nil), q.Options...)
		out[i] = q
	}
	return out
}

func copyTiers(in []domain.ResultTier) []domain.ResultTier {
	out := make([]domain.ResultTier, len(in))
	for i, t := range in {
		t.Consulting = append([]string(nil), t.Consulting...)
		out[i] = t
	}
	return out
}
