package domain

import "time"

// Category groups surveys by the area of health they assess.
type Category string

const (
	CategoryExercise     Category = "exercise"
	CategoryNutrition    Category = "nutrition"
	CategoryMentalHealth Category = "mental_health"
	CategoryLifestyle    Category = "lifestyle"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryExercise, CategoryNutrition, CategoryMentalHealth, CategoryLifestyle:
		return true
	}
	return false
}

// Level is the classification attached to a result tier, ordered from best to worst.
type Level string

const (
	LevelExcellent Level = "excellent"
	LevelGood      Level = "good"
	LevelCaution   Level = "caution"
	LevelWarning   Level = "warning"
	LevelCritical  Level = "critical"
)

var levelRank = map[Level]int{
	LevelExcellent: 0,
	LevelGood:      1,
	LevelCaution:   2,
	LevelWarning:   3,
	LevelCritical:  4,
}

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// Rank orders levels; excellent is 0. Unknown levels rank -1.
func (l Level) Rank() int {
	if r, ok := levelRank[l]; ok {
		return r
	}
	return -1
}

// Survey is a named, versioned questionnaire.
type Survey struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Version     string    `json:"version"`
	Active      bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Option is one selectable answer for a question. Its position in the
// question's option list is the selectedOptionIndex clients submit.
type Option struct {
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// Question belongs to a survey; Number fixes display and validation order.
type Question struct {
	ID       string   `json:"id"`
	SurveyID string   `json:"surveyId"`
	Number   int      `json:"questionNumber"`
	Text     string   `json:"questionText"`
	Options  []Option `json:"options"`
}

// MaxScore returns the highest option score of the question.
func (q Question) MaxScore() int {
	best := 0
	for _, o := range q.Options {
		if o.Score > best {
			best = o.Score
		}
	}
	return best
}

// ResultTier maps an inclusive score range to a classification.
type ResultTier struct {
	ID         string   `json:"id"`
	SurveyID   string   `json:"surveyId"`
	MinScore   int      `json:"minScore"`
	MaxScore   int      `json:"maxScore"`
	Level      Level    `json:"level"`
	LevelText  string   `json:"levelText"`
	Summary    string   `json:"summary"`
	Consulting []string `json:"consulting"`
}

// Contains reports whether score falls within the tier's range.
func (t ResultTier) Contains(score int) bool {
	return score >= t.MinScore && score <= t.MaxScore
}

// Snapshot is one consistent read of a survey's configuration.
type Snapshot struct {
	Survey    Survey       `json:"survey"`
	Questions []Question   `json:"questions"`
	Tiers     []ResultTier `json:"tiers"`
}

// MaxAttainableScore sums the maximum option score of every question.
func (s Snapshot) MaxAttainableScore() int {
	total := 0
	for _, q := range s.Questions {
		total += q.MaxScore()
	}
	return total
}

// Tier looks up a tier of the snapshot by id.
func (s Snapshot) Tier(id string) (ResultTier, bool) {
	for _, t := range s.Tiers {
		if t.ID == id {
			return t, true
		}
	}
	return ResultTier{}, false
}

// AnswerSubmission is one (question, option index) pair from a client.
type AnswerSubmission struct {
	QuestionID          string `json:"questionId"`
	SelectedOptionIndex int    `json:"selectedOptionIndex"`
}

// Submission is a candidate response before validation.
type Submission struct {
	SurveyID string
	UserID   string
	Answers  []AnswerSubmission
}

// Answer is a validated answer. Score is copied from the selected option at
// submission time so later edits to options never change recorded answers.
type Answer struct {
	QuestionID          string `json:"questionId"`
	SelectedOptionIndex int    `json:"selectedOptionIndex"`
	Score               int    `json:"score"`
}

// SurveyResponse is an immutable, scored submission.
type SurveyResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	SurveyID    string    `json:"surveyId"`
	Answers     []Answer  `json:"answers"`
	TotalScore  int       `json:"totalScore"`
	ResultID    string    `json:"resultId"`
	CompletedAt time.Time `json:"completedAt"`
}

// Page is one page of a paginated listing. Page numbers start at 1.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// NewPage computes Pages as ceil(total/limit).
func NewPage[T any](items []T, total, page, limit int) Page[T] {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Page: page, Limit: limit, Pages: pages}
}
