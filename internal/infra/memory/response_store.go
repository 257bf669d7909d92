package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"survey-scoring-service/internal/domain"
)

// ResponseStore is an in-memory, append-only implementation of app.ResponseStore.
type ResponseStore struct {
	mu        sync.RWMutex
	byID      map[string]int
	responses []domain.SurveyResponse
}

func NewResponseStore() *ResponseStore {
	return &ResponseStore{byID: make(map[string]int)}
}

func (s *ResponseStore) SaveResponse(_ context.Context, resp domain.SurveyResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[resp.ID]; exists {
		return fmt.Errorf("response %s already recorded", resp.ID)
	}
	resp.Answers = append([]domain.Answer(nil), resp.Answers...)
	s.byID[resp.ID] = len(s.responses)
	s.responses = append(s.responses, resp)
	return nil
}

func (s *ResponseStore) LoadResponse(_ context.Context, responseID string) (domain.SurveyResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[responseID]
	if !ok {
		return domain.SurveyResponse{}, fmt.Errorf("%w: %s", domain.ErrResponseNotFound, responseID)
	}
	return copyResponse(s.responses[i]), nil
}

// ListResponses orders by CompletedAt descending; responses completed at the
// same instant keep reverse insertion order.
func (s *ResponseStore) ListResponses(_ context.Context, userID, surveyID string, page, limit int) ([]domain.SurveyResponse, int, error) {
	s.mu.RLock()
	matched := make([]int, 0)
	for i, r := range s.responses {
		if r.UserID != userID {
			continue
		}
		if surveyID != "" && r.SurveyID != surveyID {
			continue
		}
		matched = append(matched, i)
	}
	sort.SliceStable(matched, func(a, b int) bool {
		ra, rb := s.responses[matched[a]], s.responses[matched[b]]
		if !ra.CompletedAt.Equal(rb.CompletedAt) {
			return ra.CompletedAt.After(rb.CompletedAt)
		}
		return matched[a] > matched[b]
	})

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = len(matched)
	}
	total := len(matched)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	items := make([]domain.SurveyResponse, 0, end-start)
	for _, i := range matched[start:end] {
		items = append(items, copyResponse(s.responses[i]))
	}
	s.mu.RUnlock()
	return items, total, nil
}

func copyResponse(r domain.SurveyResponse) domain.SurveyResponse {
	r.Answers = append([]domain.Answer(nil), r.Answers...)
	return r
}
