// Package scoring holds the pure survey scoring pipeline: answer validation,
// score aggregation and result tier resolution.
package scoring

import (
	"fmt"
	"sort"

	"survey-scoring-service/internal/domain"
)

// ValidateAnswers checks a candidate answer set against a survey's questions.
// Every question must be answered exactly once with an index inside its option
// list. The returned answers follow question order and carry the score of the
// selected option.
func ValidateAnswers(questions []domain.Question, candidates []domain.AnswerSubmission) ([]domain.Answer, error) {
	if len(candidates) == 0 {
		return nil, &domain.SubmissionError{Reason: "no answers submitted"}
	}

	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	selected := make(map[string]int, len(candidates))
	for _, c := range candidates {
		q, ok := byID[c.QuestionID]
		if !ok {
			return nil, &domain.SubmissionError{QuestionID: c.QuestionID, Reason: "question does not belong to this survey"}
		}
		if _, dup := selected[c.QuestionID]; dup {
			return nil, &domain.SubmissionError{QuestionID: c.QuestionID, Reason: "question answered more than once"}
		}
		if c.SelectedOptionIndex < 0 || c.SelectedOptionIndex >= len(q.Options) {
			idx := c.SelectedOptionIndex
			return nil, &domain.SubmissionError{
				QuestionID: c.QuestionID,
				Index:      &idx,
				Reason:     fmt.Sprintf("option index must be between 0 and %d", len(q.Options)-1),
			}
		}
		selected[c.QuestionID] = c.SelectedOptionIndex
	}

	ordered := OrderQuestions(questions)
	answers := make([]domain.Answer, 0, len(ordered))
	for _, q := range ordered {
		idx, ok := selected[q.ID]
		if !ok {
			return nil, &domain.SubmissionError{QuestionID: q.ID, Reason: "question not answered"}
		}
		answers = append(answers, domain.Answer{
			QuestionID:          q.ID,
			SelectedOptionIndex: idx,
			Score:               q.Options[idx].Score,
		})
	}
	return answers, nil
}

// OrderQuestions returns a copy of questions sorted by question number.
func OrderQuestions(questions []domain.Question) []domain.Question {
	ordered := make([]domain.Question, len(questions))
	copy(ordered, questions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Number < ordered[j].Number
	})
	return ordered
}

// TotalScore sums the scores of validated answers.
func TotalScore(answers []domain.Answer) int {
	total := 0
	for _, a := range answers {
		total += a.Score
	}
	return total
}
