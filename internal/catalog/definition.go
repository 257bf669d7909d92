// Package catalog describes survey definitions that can be seeded into a store.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"survey-scoring-service/internal/domain"
)

//go:embed exercise_habits.yaml
var exerciseHabitsYAML []byte

// Definition is an authored survey: metadata, questions in order and result tiers.
type Definition struct {
	Title       string               `yaml:"title"`
	Description string               `yaml:"description"`
	Category    domain.Category      `yaml:"category"`
	Version     string               `yaml:"version"`
	Questions   []QuestionDefinition `yaml:"questions"`
	Tiers       []TierDefinition     `yaml:"tiers"`
}

type QuestionDefinition struct {
	Text    string             `yaml:"text"`
	Options []OptionDefinition `yaml:"options"`
}

type OptionDefinition struct {
	Text  string `yaml:"text"`
	Score int    `yaml:"score"`
}

type TierDefinition struct {
	MinScore   int          `yaml:"min_score"`
	MaxScore   int          `yaml:"max_score"`
	Level      domain.Level `yaml:"level"`
	LevelText  string       `yaml:"level_text"`
	Summary    string       `yaml:"summary"`
	Consulting []string     `yaml:"consulting"`
}

// ExerciseHabits returns the canonical exercise habits survey.
func ExerciseHabits() Definition {
	def, err := DecodeDefinition(bytes.NewReader(exerciseHabitsYAML))
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded exercise habits survey: %v", err))
	}
	return def
}

// LoadDefinition reads a YAML survey definition from path.
func LoadDefinition(path string) (Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return Definition{}, err
	}
	defer f.Close()
	return DecodeDefinition(f)
}

// DecodeDefinition parses a YAML survey definition. Unknown fields are rejected.
func DecodeDefinition(r io.Reader) (Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return Definition{}, fmt.Errorf("decode survey definition: %w", err)
	}
	if def.Version == "" {
		def.Version = "1.0"
	}
	return def, nil
}

// Build turns the definition into an active survey snapshot with fresh ids.
// Questions are numbered from 1 in definition order.
func (d Definition) Build(newID func() string, now time.Time) domain.Snapshot {
	survey := domain.Survey{
		ID:          newID(),
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Version:     d.Version,
		Active:      true,
		CreatedAt:   now,
	}

	questions := make([]domain.Question, 0, len(d.Questions))
	for i, qd := range d.Questions {
		opts := make([]domain.Option, 0, len(qd.Options))
		for _, od := range qd.Options {
			opts = append(opts, domain.Option{Text: od.Text, Score: od.Score})
		}
		questions = append(questions, domain.Question{
			ID:       newID(),
			SurveyID: survey.ID,
			Number:   i + 1,
			Text:     qd.Text,
			Options:  opts,
		})
	}

	tiers := make([]domain.ResultTier, 0, len(d.Tiers))
	for _, td := range d.Tiers {
		tiers = append(tiers, domain.ResultTier{
			ID:         newID(),
			SurveyID:   survey.ID,
			MinScore:   td.MinScore,
			MaxScore:   td.MaxScore,
			Level:      td.Level,
			LevelText:  td.LevelText,
			Summary:    td.Summary,
			Consulting: append([]string(nil), td.Consulting...),
		})
	}

	return domain.Snapshot{Survey: survey, Questions: questions, Tiers: tiers}
}
