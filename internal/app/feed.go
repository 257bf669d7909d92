package app

import (
	"sync"

	"survey-scoring-service/internal/domain"
)

const feedBuffer = 8

// ResponseFeed fans recorded responses out to subscribers of the same user.
type ResponseFeed struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.SurveyResponse]struct{}
}

func NewResponseFeed() *ResponseFeed {
	return &ResponseFeed{subscribers: make(map[string]map[chan domain.SurveyResponse]struct{})}
}

// Subscribe returns a channel that receives every response recorded for userID.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *ResponseFeed) Subscribe(userID string) (<-chan domain.SurveyResponse, func()) {
	ch := make(chan domain.SurveyResponse, feedBuffer)

	f.mu.Lock()
	subs, ok := f.subscribers[userID]
	if !ok {
		subs = make(map[chan domain.SurveyResponse]struct{})
		f.subscribers[userID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs, ok := f.subscribers[userID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.subscribers, userID)
		}
	}
	return ch, cancel
}

// Publish delivers resp to the user's subscribers without blocking. A slow
// subscriber loses its oldest pending response.
func (f *ResponseFeed) Publish(resp domain.SurveyResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[resp.UserID] {
		select {
		case ch <- resp:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- resp
		}
	}
}

// Subscribers returns the number of open subscriptions for userID.
func (f *ResponseFeed) Subscribers(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers[userID])
}
