package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"survey-scoring-service/internal/domain"
)

func TestResponseStoreHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewResponseStore()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"r1", "r2", "r3"} {
		resp := domain.SurveyResponse{ID: id, UserID: "u1", SurveyID: "s1", CompletedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := store.SaveResponse(ctx, resp); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	_ = store.SaveResponse(ctx, domain.SurveyResponse{ID: "other", UserID: "u2", SurveyID: "s1", CompletedAt: base})
	_ = store.SaveResponse(ctx, domain.SurveyResponse{ID: "r4", UserID: "u1", SurveyID: "s2", CompletedAt: base.Add(10 * time.Hour)})

	items, total, err := store.ListResponses(ctx, "u1", "s1", 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(items) != 2 || items[0].ID != "r3" || items[1].ID != "r2" {
		t.Fatalf("unexpected page 1: total=%d items=%+v", total, items)
	}

	items, _, _ = store.ListResponses(ctx, "u1", "s1", 2, 2)
	if len(items) != 1 || items[0].ID != "r1" {
		t.Fatalf("unexpected page 2: %+v", items)
	}

	items, total, _ = store.ListResponses(ctx, "u1", "", 1, 10)
	if total != 4 || items[0].ID != "r4" {
		t.Fatalf("expected all surveys for user, got total=%d first=%s", total, items[0].ID)
	}

	items, _, _ = store.ListResponses(ctx, "u1", "s1", 5, 2)
	if len(items) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(items))
	}
}

func TestResponseStoreIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	store := NewResponseStore()
	resp := domain.SurveyResponse{ID: "r1", UserID: "u1", Answers: []domain.Answer{{QuestionID: "q1", Score: 2}}}

	if err := store.SaveResponse(ctx, resp); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveResponse(ctx, resp); err == nil {
		t.Fatalf("expected duplicate id to be rejected")
	}

	resp.Answers[0].Score = 99
	loaded, err := store.LoadResponse(ctx, "r1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Answers[0].Score != 2 {
		t.Fatalf("recorded answer changed to %d", loaded.Answers[0].Score)
	}

	if _, err := store.LoadResponse(ctx, "missing"); !errors.Is(err, domain.ErrResponseNotFound) {
		t.Fatalf("expected response not found, got %v", err)
	}
}
