package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"survey-scoring-service/internal/domain"
)

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

const surveyColumns = `id, title, description, category, version, is_active, created_at`

// SurveyStore loads and stores survey definitions in Postgres.
type SurveyStore struct {
	pool *pgxpool.Pool
}

func NewSurveyStore(pool *pgxpool.Pool) *SurveyStore {
	return &SurveyStore{pool: pool}
}

func (s *SurveyStore) LoadSurvey(ctx context.Context, surveyID string) (domain.Survey, error) {
	return loadSurvey(ctx, s.pool, surveyID)
}

func (s *SurveyStore) LoadQuestions(ctx context.Context, surveyID string) ([]domain.Question, error) {
	if _, err := loadSurvey(ctx, s.pool, surveyID); err != nil {
		return nil, err
	}
	return loadQuestions(ctx, s.pool, surveyID)
}

func (s *SurveyStore) LoadResultTiers(ctx context.Context, surveyID string) ([]domain.ResultTier, error) {
	if _, err := loadSurvey(ctx, s.pool, surveyID); err != nil {
		return nil, err
	}
	return loadTiers(ctx, s.pool, surveyID)
}

// LoadSnapshot reads the survey, its questions and tiers inside one
// repeatable-read transaction so concurrent edits cannot produce a mixed view.
func (s *SurveyStore) LoadSnapshot(ctx context.Context, surveyID string) (domain.Snapshot, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	survey, err := loadSurvey(ctx, tx, surveyID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	questions, err := loadQuestions(ctx, tx, surveyID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	tiers, err := loadTiers(ctx, tx, surveyID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Snapshot{}, fmt.Errorf("commit snapshot: %w", err)
	}
	return domain.Snapshot{Survey: survey, Questions: questions, Tiers: tiers}, nil
}

func (s *SurveyStore) FindSurvey(ctx context.Context, title string, category domain.Category) (domain.Survey, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+surveyColumns+` FROM surveys WHERE title = $1 AND category = $2`, title, string(category))
	survey, err := scanSurvey(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Survey{}, fmt.Errorf("%w: %q in %s", domain.ErrSurveyNotFound, title, category)
	}
	if err != nil {
		return domain.Survey{}, fmt.Errorf("find survey: %w", err)
	}
	return survey, nil
}

func (s *SurveyStore) ListSurveys(ctx context.Context, category domain.Category) ([]domain.Survey, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+surveyColumns+` FROM surveys
		WHERE ($1 = '' OR category = $1)
		ORDER BY created_at, id`, string(category))
	if err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	defer rows.Close()

	surveys := []domain.Survey{}
	for rows.Next() {
		survey, err := scanSurvey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan survey: %w", err)
		}
		surveys = append(surveys, survey)
	}
	return surveys, rows.Err()
}

// SaveSurvey inserts the survey with its questions and tiers in one transaction.
// The unique (title, category) constraint decides concurrent seeds: the loser
// gets domain.ErrSurveyExists and nothing is written.
func (s *SurveyStore) SaveSurvey(ctx context.Context, survey domain.Survey, questions []domain.Question, tiers []domain.ResultTier) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save survey: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var id string
	err = tx.QueryRow(ctx, `INSERT INTO surveys (`+surveyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (title, category) DO NOTHING
		RETURNING id`,
		survey.ID, survey.Title, survey.Description, string(survey.Category), survey.Version, survey.Active, survey.CreatedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrSurveyExists
	}
	if err != nil {
		return fmt.Errorf("insert survey: %w", err)
	}

	batch := &pgx.Batch{}
	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode options for %s: %w", q.ID, err)
		}
		batch.Queue(`INSERT INTO survey_questions (id, survey_id, question_number, question_text, options)
			VALUES ($1, $2, $3, $4, $5)`, q.ID, survey.ID, q.Number, q.Text, string(options))
	}
	for _, t := range tiers {
		batch.Queue(`INSERT INTO survey_result_tiers (id, survey_id, min_score, max_score, level, level_text, summary, consulting)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			t.ID, survey.ID, t.MinScore, t.MaxScore, string(t.Level), t.LevelText, t.Summary, t.Consulting)
	}
	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert survey content: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("insert survey content: %w", err)
	}
	return tx.Commit(ctx)
}

func loadSurvey(ctx context.Context, q querier, surveyID string) (domain.Survey, error) {
	survey, err := scanSurvey(q.QueryRow(ctx, `SELECT `+surveyColumns+` FROM surveys WHERE id = $1`, surveyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Survey{}, fmt.Errorf("%w: %s", domain.ErrSurveyNotFound, surveyID)
	}
	if err != nil {
		return domain.Survey{}, fmt.Errorf("load survey: %w", err)
	}
	return survey, nil
}

func loadQuestions(ctx context.Context, q querier, surveyID string) ([]domain.Question, error) {
	rows, err := q.Query(ctx, `SELECT id, survey_id, question_number, question_text, options
		FROM survey_questions WHERE survey_id = $1 ORDER BY question_number`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	questions := []domain.Question{}
	for rows.Next() {
		var (
			question domain.Question
			raw      []byte
		)
		if err := rows.Scan(&question.ID, &question.SurveyID, &question.Number, &question.Text, &raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(raw, &question.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options of %s: %w", question.ID, err)
		}
		questions = append(questions, question)
	}
	return questions, rows.Err()
}

func loadTiers(ctx context.Context, q querier, surveyID string) ([]domain.ResultTier, error) {
	rows, err := q.Query(ctx, `SELECT id, survey_id, min_score, max_score, level, level_text, summary, consulting
		FROM survey_result_tiers WHERE survey_id = $1 ORDER BY min_score, id`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("load result tiers: %w", err)
	}
	defer rows.Close()

	tiers := []domain.ResultTier{}
	for rows.Next() {
		var (
			tier  domain.ResultTier
			level string
		)
		if err := rows.Scan(&tier.ID, &tier.SurveyID, &tier.MinScore, &tier.MaxScore, &level, &tier.LevelText, &tier.Summary, &tier.Consulting); err != nil {
			return nil, fmt.Errorf("scan result tier: %w", err)
		}
		tier.Level = domain.Level(level)
		tiers = append(tiers, tier)
	}
	return tiers, rows.Err()
}

func scanSurvey(row pgx.Row) (domain.Survey, error) {
	var (
		survey   domain.Survey
		category string
	)
	err := row.Scan(&survey.ID, &survey.Title, &survey.Description, &category, &survey.Version, &survey.Active, &survey.CreatedAt)
	survey.Category = domain.Category(category)
	return survey, err
}
