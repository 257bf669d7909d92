package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is the base for every missing survey, question, tier or response.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSubmission is returned for incomplete, duplicated or out-of-range answers.
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrUnscorableResult means a total score matched none of the survey's tiers.
	ErrUnscorableResult = errors.New("unscorable result")
	// ErrConfiguration flags a data-authoring defect in a survey definition.
	ErrConfiguration = errors.New("configuration error")
	// ErrSurveyExists is returned by stores when a survey with the same title and category exists.
	ErrSurveyExists = errors.New("survey already exists")

	ErrSurveyNotFound   = fmt.Errorf("survey %w", ErrNotFound)
	ErrResponseNotFound = fmt.Errorf("response %w", ErrNotFound)
	ErrTierNotFound     = fmt.Errorf("result tier %w", ErrNotFound)
)

// Kind is the machine-readable failure class reported at the request boundary.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindInvalidSubmission Kind = "invalid_submission"
	KindUnscorableResult  Kind = "unscorable_result"
	KindConfiguration     Kind = "configuration_error"
	KindInternal          Kind = "internal"
)

// KindOf classifies err.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidSubmission):
		return KindInvalidSubmission
	case errors.Is(err, ErrUnscorableResult):
		return KindUnscorableResult
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	}
	return KindInternal
}

// SubmissionError names the question (and index, when relevant) that made a
// submission invalid.
type SubmissionError struct {
	QuestionID string
	Index      *int
	Reason     string
}

func (e *SubmissionError) Error() string {
	if e.Index != nil {
		return fmt.Sprintf("invalid submission: question %s: %s (index %d)", e.QuestionID, e.Reason, *e.Index)
	}
	if e.QuestionID == "" {
		return "invalid submission: " + e.Reason
	}
	return fmt.Sprintf("invalid submission: question %s: %s", e.QuestionID, e.Reason)
}

func (e *SubmissionError) Unwrap() error { return ErrInvalidSubmission }

// UnscorableError reports a score outside every configured tier.
type UnscorableError struct {
	SurveyID string
	Score    int
}

func (e *UnscorableError) Error() string {
	return fmt.Sprintf("unscorable result: survey %s has no tier for score %d", e.SurveyID, e.Score)
}

func (e *UnscorableError) Unwrap() error { return ErrUnscorableResult }

// ConfigError lists every problem found in a survey's configuration.
type ConfigError struct {
	SurveyID string
	Problems []string
}

func (e *ConfigError) Error() string {
	subject := "survey"
	if e.SurveyID != "" {
		subject = "survey " + e.SurveyID
	}
	return fmt.Sprintf("configuration error: %s: %s", subject, strings.Join(e.Problems, "; "))
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }
