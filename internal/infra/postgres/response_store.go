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

const responseColumns = `id, user_id, survey_id, answers, total_score, result_id, completed_at`

// ResponseStore records scored responses. Rows are only ever inserted.
type ResponseStore struct {
	pool *pgxpool.Pool
}

func NewResponseStore(pool *pgxpool.Pool) *ResponseStore {
	return &ResponseStore{pool: pool}
}

func (s *ResponseStore) SaveResponse(ctx context.Context, resp domain.SurveyResponse) error {
	answers, err := json.Marshal(resp.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO survey_responses (`+responseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		resp.ID, resp.UserID, resp.SurveyID, string(answers), resp.TotalScore, resp.ResultID, resp.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

func (s *ResponseStore) LoadResponse(ctx context.Context, responseID string) (domain.SurveyResponse, error) {
	resp, err := scanResponse(s.pool.QueryRow(ctx, `SELECT `+responseColumns+` FROM survey_responses WHERE id = $1`, responseID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SurveyResponse{}, fmt.Errorf("%w: %s", domain.ErrResponseNotFound, responseID)
	}
	if err != nil {
		return domain.SurveyResponse{}, fmt.Errorf("load response: %w", err)
	}
	return resp, nil
}

func (s *ResponseStore) ListResponses(ctx context.Context, userID, surveyID string, page, limit int) ([]domain.SurveyResponse, int, error) {
	var total int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM survey_responses
		WHERE user_id = $1 AND ($2 = '' OR survey_id = $2)`, userID, surveyID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count responses: %w", err)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = total
	}

	rows, err := s.pool.Query(ctx, `SELECT `+responseColumns+` FROM survey_responses
		WHERE user_id = $1 AND ($2 = '' OR survey_id = $2)
		ORDER BY completed_at DESC, id DESC
		LIMIT $3 OFFSET $4`, userID, surveyID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	responses := []domain.SurveyResponse{}
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan response: %w", err)
		}
		responses = append(responses, resp)
	}
	return responses, total, rows.Err()
}

func scanResponse(row pgx.Row) (domain.SurveyResponse, error) {
	var (
		resp domain.SurveyResponse
		raw  []byte
	)
	if err := row.Scan(&resp.ID, &resp.UserID, &resp.SurveyID, &raw, &resp.TotalScore, &resp.ResultID, &resp.CompletedAt); err != nil {
		return domain.SurveyResponse{}, err
	}
	if err := json.Unmarshal(raw, &resp.Answers); err != nil {
		return domain.SurveyResponse{}, fmt.Errorf("unmarshal answers of %s: %w", resp.ID, err)
	}
	resp.CompletedAt = resp.CompletedAt.UTC()
	return resp, nil
}
