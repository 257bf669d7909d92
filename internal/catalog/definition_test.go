package catalog

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survey-scoring-service/internal/domain"
	"survey-scoring-service/internal/scoring"
)

func TestExerciseHabitsIsValid(t *testing.T) {
	def := ExerciseHabits()
	assert.Equal(t, domain.CategoryExercise, def.Category)
	require.Len(t, def.Questions, 5)

	snap := def.Build(sequentialIDs(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, scoring.CheckSurvey(snap))
	assert.Equal(t, 15, snap.MaxAttainableScore())
	assert.True(t, snap.Survey.Active)
}

func TestBuildNumbersQuestionsAndLinksIDs(t *testing.T) {
	snap := ExerciseHabits().Build(sequentialIDs(), time.Now())

	assert.Equal(t, "id-1", snap.Survey.ID)
	for i, q := range snap.Questions {
		assert.Equal(t, i+1, q.Number)
		assert.Equal(t, snap.Survey.ID, q.SurveyID)
	}
	for _, tier := range snap.Tiers {
		assert.Equal(t, snap.Survey.ID, tier.SurveyID)
		assert.NotEmpty(t, tier.ID)
	}
}

func TestDecodeDefinitionDefaultsVersion(t *testing.T) {
	def, err := DecodeDefinition(strings.NewReader(`
title: Sleep
description: Sleep quality
category: lifestyle
questions:
  - text: Hours of sleep?
    options:
      - {text: "7+", score: 0}
      - {text: "<7", score: 1}
tiers:
  - {min_score: 0, max_score: 1, level: good, level_text: Good, summary: ok, consulting: [sleep well]}
`))
	require.NoError(t, err)
	assert.Equal(t, "1.0", def.Version)
	assert.Equal(t, domain.CategoryLifestyle, def.Category)
	assert.Equal(t, 1, def.Questions[0].Options[1].Score)
}

func TestDecodeDefinitionRejectsUnknownFields(t *testing.T) {
	_, err := DecodeDefinition(strings.NewReader("title: x\ncolour: blue\n"))
	assert.Error(t, err)
}

func TestInvalidTiersFailCheck(t *testing.T) {
	def := ExerciseHabits()
	def.Tiers = def.Tiers[:4]

	err := scoring.CheckSurvey(def.Build(sequentialIDs(), time.Now()))
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "scores 13-15 are not covered")
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}
