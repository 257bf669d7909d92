package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	idx := 4
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"survey not found", ErrSurveyNotFound, KindNotFound},
		{"wrapped response not found", fmt.Errorf("load: %w", ErrResponseNotFound), KindNotFound},
		{"submission", &SubmissionError{QuestionID: "q1", Index: &idx, Reason: "option index out of range"}, KindInvalidSubmission},
		{"unscorable", &UnscorableError{SurveyID: "s1", Score: 99}, KindUnscorableResult},
		{"config", &ConfigError{Problems: []string{"gap"}}, KindConfiguration},
		{"other", errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestSubmissionErrorNamesQuestionAndIndex(t *testing.T) {
	idx := 4
	err := &SubmissionError{QuestionID: "q1", Index: &idx, Reason: "option index out of range"}
	assert.Contains(t, err.Error(), "q1")
	assert.Contains(t, err.Error(), "index 4")
	assert.ErrorIs(t, err, ErrInvalidSubmission)
}

func TestNewPageComputesPages(t *testing.T) {
	p := NewPage([]int{1, 2}, 3, 1, 2)
	assert.Equal(t, 2, p.Pages)

	empty := NewPage[int](nil, 0, 1, 10)
	assert.Equal(t, 0, empty.Pages)
	assert.NotNil(t, empty.Items)
}

func TestLevelRank(t *testing.T) {
	assert.True(t, LevelExcellent.Rank() < LevelCritical.Rank())
	assert.Equal(t, -1, Level("unknown").Rank())
	assert.False(t, Category("sleep").Valid())
}
