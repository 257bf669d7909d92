package scoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survey-scoring-service/internal/domain"
)

func TestValidateAnswersPopulatesScoresInQuestionOrder(t *testing.T) {
	answers, err := ValidateAnswers(sampleQuestions(), []domain.AnswerSubmission{
		{QuestionID: "q2", SelectedOptionIndex: 2},
		{QuestionID: "q1", SelectedOptionIndex: 3},
	})
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, domain.Answer{QuestionID: "q1", SelectedOptionIndex: 3, Score: 3}, answers[0])
	assert.Equal(t, domain.Answer{QuestionID: "q2", SelectedOptionIndex: 2, Score: 2}, answers[1])
}

func TestValidateAnswersRejects(t *testing.T) {
	cases := []struct {
		name       string
		answers    []domain.AnswerSubmission
		questionID string
		index      *int
	}{
		{
			name:    "empty",
			answers: nil,
		},
		{
			name:       "missing question",
			answers:    []domain.AnswerSubmission{{QuestionID: "q1", SelectedOptionIndex: 0}},
			questionID: "q2",
		},
		{
			name: "duplicate question",
			answers: []domain.AnswerSubmission{
				{QuestionID: "q1", SelectedOptionIndex: 0},
				{QuestionID: "q1", SelectedOptionIndex: 1},
			},
			questionID: "q1",
		},
		{
			name: "foreign question",
			answers: []domain.AnswerSubmission{
				{QuestionID: "q1", SelectedOptionIndex: 0},
				{QuestionID: "q2", SelectedOptionIndex: 0},
				{QuestionID: "zz", SelectedOptionIndex: 0},
			},
			questionID: "zz",
		},
		{
			name: "index past last option",
			answers: []domain.AnswerSubmission{
				{QuestionID: "q1", SelectedOptionIndex: 4},
				{QuestionID: "q2", SelectedOptionIndex: 0},
			},
			questionID: "q1",
			index:      intPtr(4),
		},
		{
			name: "negative index",
			answers: []domain.AnswerSubmission{
				{QuestionID: "q1", SelectedOptionIndex: 0},
				{QuestionID: "q2", SelectedOptionIndex: -1},
			},
			questionID: "q2",
			index:      intPtr(-1),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateAnswers(sampleQuestions(), tc.answers)
			require.ErrorIs(t, err, domain.ErrInvalidSubmission)

			var subErr *domain.SubmissionError
			require.True(t, errors.As(err, &subErr))
			assert.Equal(t, tc.questionID, subErr.QuestionID)
			if tc.index != nil {
				require.NotNil(t, subErr.Index)
				assert.Equal(t, *tc.index, *subErr.Index)
			}
		})
	}
}

func TestTotalScoreIsOrderIndependent(t *testing.T) {
	questions := []domain.Question{
		question("a", 1, 0, 1, 2),
		question("b", 2, 0, 5),
		question("c", 3, 0, 3, 7),
		question("d", 4, 1, 4),
	}
	base := []domain.AnswerSubmission{
		{QuestionID: "a", SelectedOptionIndex: 2},
		{QuestionID: "b", SelectedOptionIndex: 1},
		{QuestionID: "c", SelectedOptionIndex: 2},
		{QuestionID: "d", SelectedOptionIndex: 0},
	}
	const want = 2 + 5 + 7 + 1

	for _, perm := range permutations(base) {
		answers, err := ValidateAnswers(questions, perm)
		require.NoError(t, err)
		assert.Equal(t, want, TotalScore(answers))
	}

	raw := []domain.Answer{{Score: 3}, {Score: 9}, {Score: 0}}
	reversed := []domain.Answer{raw[2], raw[1], raw[0]}
	assert.Equal(t, TotalScore(raw), TotalScore(reversed))
}

func TestResolveExampleSurvey(t *testing.T) {
	table := NewTierTable("s1", sampleTiers())

	res, err := table.Resolve(5)
	require.NoError(t, err)
	assert.Equal(t, domain.LevelCaution, res.Tier.Level)
	assert.False(t, res.Ambiguous())

	res, err = table.Resolve(0)
	require.NoError(t, err)
	assert.Equal(t, domain.LevelExcellent, res.Tier.Level)
}

func TestEveryAttainableScoreResolvesToExactlyOneTier(t *testing.T) {
	questions := sampleQuestions()
	tiers := sampleTiers()
	require.NoError(t, CheckTiers(questions, tiers))

	table := NewTierTable("s1", tiers)
	max := domain.Snapshot{Questions: questions}.MaxAttainableScore()
	for score := 0; score <= max; score++ {
		res, err := table.Resolve(score)
		require.NoError(t, err, "score %d", score)
		assert.Equal(t, 1, res.Matches, "score %d", score)

		matches := 0
		for _, tier := range tiers {
			if tier.Contains(score) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "score %d", score)
	}
}

func TestResolveOutsideRangesIsUnscorable(t *testing.T) {
	table := NewTierTable("s1", sampleTiers())

	_, err := table.Resolve(7)
	require.ErrorIs(t, err, domain.ErrUnscorableResult)

	var unscorable *domain.UnscorableError
	require.True(t, errors.As(err, &unscorable))
	assert.Equal(t, "s1", unscorable.SurveyID)
	assert.Equal(t, 7, unscorable.Score)

	_, err = NewTierTable("s1", nil).Resolve(0)
	assert.ErrorIs(t, err, domain.ErrUnscorableResult)
}

func TestResolveGapIsUnscorable(t *testing.T) {
	table := NewTierTable("s1", []domain.ResultTier{
		tier("t1", 0, 2, domain.LevelGood),
		tier("t2", 5, 6, domain.LevelCaution),
	})
	_, err := table.Resolve(3)
	assert.ErrorIs(t, err, domain.ErrUnscorableResult)
}

func TestResolveOverlapPicksLowestMinimum(t *testing.T) {
	table := NewTierTable("s1", []domain.ResultTier{
		tier("late", 3, 6, domain.LevelCaution),
		tier("early", 0, 4, domain.LevelGood),
	})

	res, err := table.Resolve(4)
	require.NoError(t, err)
	assert.Equal(t, "early", res.Tier.ID)
	assert.True(t, res.Ambiguous())

	res, err = table.Resolve(6)
	require.NoError(t, err)
	assert.Equal(t, "late", res.Tier.ID)
	assert.False(t, res.Ambiguous())
}

func TestCheckTiersReportsOverlapAndGap(t *testing.T) {
	err := CheckTiers(sampleQuestions(), []domain.ResultTier{
		tier("t1", 0, 3, domain.LevelExcellent),
		tier("t2", 3, 4, domain.LevelGood),
	})
	require.ErrorIs(t, err, domain.ErrConfiguration)

	var cfgErr *domain.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Len(t, cfgErr.Problems, 2)
	assert.Contains(t, cfgErr.Problems[0], "overlap")
	assert.Contains(t, cfgErr.Problems[1], "scores 5-6")
}

func TestCheckTiersRejectsMalformedTier(t *testing.T) {
	bad := tier("t1", 0, 6, "superb")
	bad.Consulting = nil
	err := CheckTiers(sampleQuestions(), []domain.ResultTier{bad})

	var cfgErr *domain.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Len(t, cfgErr.Problems, 2)
}

func TestCheckSurvey(t *testing.T) {
	snap := domain.Snapshot{
		Survey:    domain.Survey{ID: "s1", Title: "Habits", Category: domain.CategoryExercise},
		Questions: sampleQuestions(),
		Tiers:     sampleTiers(),
	}
	require.NoError(t, CheckSurvey(snap))

	snap.Questions = append(snap.Questions, domain.Question{ID: "q3", Number: 2, Options: []domain.Option{{Text: "x", Score: -1}}})
	err := CheckSurvey(snap)
	var cfgErr *domain.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Problems, "question number 2 is used more than once")
	assert.Contains(t, cfgErr.Problems, "question 2 option 0 has negative score -1")

	empty := domain.Snapshot{Survey: domain.Survey{Title: "x", Category: domain.CategoryLifestyle}}
	err = CheckSurvey(empty)
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Problems, "survey has no questions")
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		question("q1", 1, 0, 1, 2, 3),
		question("q2", 2, 0, 1, 2, 3),
	}
}

func sampleTiers() []domain.ResultTier {
	return []domain.ResultTier{
		tier("t3", 5, 6, domain.LevelCaution),
		tier("t1", 0, 2, domain.LevelExcellent),
		tier("t2", 3, 4, domain.LevelGood),
	}
}

func question(id string, number int, scores ...int) domain.Question {
	opts := make([]domain.Option, len(scores))
	for i, s := range scores {
		opts[i] = domain.Option{Text: id + "-option", Score: s}
	}
	return domain.Question{ID: id, SurveyID: "s1", Number: number, Text: "Question " + id, Options: opts}
}

func tier(id string, min, max int, level domain.Level) domain.ResultTier {
	return domain.ResultTier{
		ID:         id,
		SurveyID:   "s1",
		MinScore:   min,
		MaxScore:   max,
		Level:      level,
		LevelText:  string(level),
		Summary:    "summary",
		Consulting: []string{"keep going"},
	}
}

func permutations(in []domain.AnswerSubmission) [][]domain.AnswerSubmission {
	if len(in) <= 1 {
		return [][]domain.AnswerSubmission{append([]domain.AnswerSubmission(nil), in...)}
	}
	var out [][]domain.AnswerSubmission
	for i := range in {
		rest := make([]domain.AnswerSubmission, 0, len(in)-1)
		rest = append(rest, in[:i]...)
		rest = append(rest, in[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]domain.AnswerSubmission{in[i]}, p...))
		}
	}
	return out
}

func intPtr(v int) *int { return &v }
