package scoring

import (
	"fmt"
	"sort"
	"strings"

	"survey-scoring-service/internal/domain"
)

const (
	maxLevelTextLen  = 50
	maxSummaryLen    = 1000
	maxConsultingLen = 500
)

// TierTable resolves total scores to result tiers. Tiers are kept sorted by
// MinScore so a lookup is a binary search over the range starts.
type TierTable struct {
	surveyID    string
	tiers       []domain.ResultTier
	overlapping bool
}

// Resolution is the outcome of a tier lookup. Matches is greater than one
// only when the configured ranges overlap.
type Resolution struct {
	Tier    domain.ResultTier
	Matches int
}

// Ambiguous reports whether more than one tier contained the score.
func (r Resolution) Ambiguous() bool {
	return r.Matches > 1
}

// NewTierTable builds a lookup table for one survey's tiers.
func NewTierTable(surveyID string, tiers []domain.ResultTier) *TierTable {
	sorted := sortTiers(tiers)

	overlapping := false
	for i := 1; i < len(sorted); i++ {
		if sorted[i].MinScore <= reach(sorted[:i]) {
			overlapping = true
			break
		}
	}
	return &TierTable{surveyID: surveyID, tiers: sorted, overlapping: overlapping}
}

// Len returns the number of tiers in the table.
func (t *TierTable) Len() int {
	return len(t.tiers)
}

// Resolve returns the tier whose [MinScore, MaxScore] contains score. With
// overlapping ranges the tier with the lowest MinScore wins and the result is
// marked ambiguous. A score outside every range is an UnscorableError.
func (t *TierTable) Resolve(score int) (Resolution, error) {
	n := sort.Search(len(t.tiers), func(i int) bool {
		return t.tiers[i].MinScore > score
	})
	if n > 0 && !t.overlapping {
		if candidate := t.tiers[n-1]; candidate.Contains(score) {
			return Resolution{Tier: candidate, Matches: 1}, nil
		}
	}
	if n > 0 && t.overlapping {
		var res Resolution
		for _, tier := range t.tiers[:n] {
			if !tier.Contains(score) {
				continue
			}
			if res.Matches == 0 {
				res.Tier = tier
			}
			res.Matches++
		}
		if res.Matches > 0 {
			return res, nil
		}
	}
	return Resolution{}, &domain.UnscorableError{SurveyID: t.surveyID, Score: score}
}

// CheckTiers verifies that tiers do not overlap and together cover every
// integer score from 0 to the maximum attainable for questions.
func CheckTiers(questions []domain.Question, tiers []domain.ResultTier) error {
	problems := tierProblems(tiers, maxAttainable(questions))
	if len(problems) == 0 {
		return nil
	}
	return &domain.ConfigError{SurveyID: surveyIDOf(questions, tiers), Problems: problems}
}

// CheckSurvey validates a full survey configuration: categories, questions,
// options and the tier range invariant. Every problem found is reported.
func CheckSurvey(snap domain.Snapshot) error {
	var problems []string

	if strings.TrimSpace(snap.Survey.Title) == "" {
		problems = append(problems, "survey title is empty")
	}
	if !snap.Survey.Category.Valid() {
		problems = append(problems, fmt.Sprintf("unknown category %q", snap.Survey.Category))
	}
	if len(snap.Questions) == 0 {
		problems = append(problems, "survey has no questions")
	}

	numbers := make(map[int]bool, len(snap.Questions))
	ids := make(map[string]bool, len(snap.Questions))
	for _, q := range snap.Questions {
		if numbers[q.Number] {
			problems = append(problems, fmt.Sprintf("question number %d is used more than once", q.Number))
		}
		numbers[q.Number] = true
		if q.ID != "" {
			if ids[q.ID] {
				problems = append(problems, fmt.Sprintf("question id %s is used more than once", q.ID))
			}
			ids[q.ID] = true
		}
		if len(q.Options) == 0 {
			problems = append(problems, fmt.Sprintf("question %d has no options", q.Number))
		}
		for i, o := range q.Options {
			if o.Score < 0 {
				problems = append(problems, fmt.Sprintf("question %d option %d has negative score %d", q.Number, i, o.Score))
			}
		}
	}

	problems = append(problems, tierProblems(snap.Tiers, maxAttainable(snap.Questions))...)
	if len(problems) == 0 {
		return nil
	}
	return &domain.ConfigError{SurveyID: snap.Survey.ID, Problems: problems}
}

func tierProblems(tiers []domain.ResultTier, maxScore int) []string {
	if len(tiers) == 0 {
		return []string{"survey has no result tiers"}
	}

	var problems []string
	valid := make([]domain.ResultTier, 0, len(tiers))
	for _, tier := range tiers {
		p := tierShapeProblems(tier)
		problems = append(problems, p...)
		if tier.MinScore >= 0 && tier.MinScore <= tier.MaxScore {
			valid = append(valid, tier)
		}
	}

	sorted := sortTiers(valid)
	for i := 1; i < len(sorted); i++ {
		for _, prev := range sorted[:i] {
			if sorted[i].MinScore <= prev.MaxScore {
				problems = append(problems, fmt.Sprintf("tiers %s and %s overlap", describe(prev), describe(sorted[i])))
			}
		}
	}

	next := 0
	for _, tier := range sorted {
		if next > maxScore {
			break
		}
		if tier.MinScore > next {
			problems = append(problems, fmt.Sprintf("scores %d-%d are not covered by any tier", next, minInt(tier.MinScore-1, maxScore)))
		}
		if tier.MaxScore+1 > next {
			next = tier.MaxScore + 1
		}
	}
	if next <= maxScore {
		problems = append(problems, fmt.Sprintf("scores %d-%d are not covered by any tier", next, maxScore))
	}
	return problems
}

func tierShapeProblems(tier domain.ResultTier) []string {
	var problems []string
	name := describe(tier)
	if tier.MinScore < 0 {
		problems = append(problems, fmt.Sprintf("tier %s has a negative minimum", name))
	}
	if tier.MinScore > tier.MaxScore {
		problems = append(problems, fmt.Sprintf("tier %s has minimum above maximum", name))
	}
	if !tier.Level.Valid() {
		problems = append(problems, fmt.Sprintf("tier %s has unknown level %q", name, tier.Level))
	}
	if text := strings.TrimSpace(tier.LevelText); text == "" || len([]rune(text)) > maxLevelTextLen {
		problems = append(problems, fmt.Sprintf("tier %s level text must be 1-%d characters", name, maxLevelTextLen))
	}
	if len([]rune(tier.Summary)) > maxSummaryLen {
		problems = append(problems, fmt.Sprintf("tier %s summary exceeds %d characters", name, maxSummaryLen))
	}
	if len(tier.Consulting) == 0 {
		problems = append(problems, fmt.Sprintf("tier %s has no consulting advice", name))
	}
	for i, advice := range tier.Consulting {
		if strings.TrimSpace(advice) == "" || len([]rune(advice)) > maxConsultingLen {
			problems = append(problems, fmt.Sprintf("tier %s consulting entry %d must be 1-%d characters", name, i, maxConsultingLen))
		}
	}
	return problems
}

func sortTiers(tiers []domain.ResultTier) []domain.ResultTier {
	sorted := make([]domain.ResultTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].MinScore != sorted[j].MinScore {
			return sorted[i].MinScore < sorted[j].MinScore
		}
		return sorted[i].MaxScore < sorted[j].MaxScore
	})
	return sorted
}

// reach returns the highest MaxScore among tiers.
func reach(tiers []domain.ResultTier) int {
	r := tiers[0].MaxScore
	for _, t := range tiers[1:] {
		if t.MaxScore > r {
			r = t.MaxScore
		}
	}
	return r
}

func maxAttainable(questions []domain.Question) int {
	return domain.Snapshot{Questions: questions}.MaxAttainableScore()
}

func describe(t domain.ResultTier) string {
	label := string(t.Level)
	if label == "" {
		label = t.ID
	}
	return fmt.Sprintf("%s[%d,%d]", label, t.MinScore, t.MaxScore)
}

func surveyIDOf(questions []domain.Question, tiers []domain.ResultTier) string {
	if len(tiers) > 0 {
		return tiers[0].SurveyID
	}
	if len(questions) > 0 {
		return questions[0].SurveyID
	}
	return ""
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
