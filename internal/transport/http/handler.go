package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"survey-scoring-service/internal/app"
	"survey-scoring-service/internal/domain"
)

var errRateLimited = errors.New("too many submissions, slow down")

// Handler exposes the survey use cases over REST.
type Handler struct {
	service *app.SurveyService
	boot    *app.Bootstrapper
	limiter *SubmissionLimiter
	log     *logrus.Logger
}

func NewHandler(service *app.SurveyService, boot *app.Bootstrapper, limiter *SubmissionLimiter, logger *logrus.Logger) *Handler {
	return &Handler{service: service, boot: boot, limiter: limiter, log: logger}
}

// NewRouter builds the gin engine with every route. ws may be nil.
func NewRouter(h *Handler, ws *WSHandler, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := router.Group("/api/surveys")
	api.GET("", h.ListSurveys)
	api.POST("", h.SeedSurvey)
	api.GET("/:id", h.GetSurvey)
	api.POST("/:id/responses", h.SubmitResponse)
	api.GET("/responses/:responseId/result", h.GetResult)
	api.GET("/users/:userId/history", h.History)

	if ws != nil {
		router.GET("/ws/responses", gin.WrapF(ws.ServeWS))
	}
	return router
}

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Total   *int        `json:"total,omitempty"`
	Page    *int        `json:"page,omitempty"`
	Pages   *int        `json:"pages,omitempty"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

type errorBody struct {
	Kind       domain.Kind `json:"kind"`
	Message    string      `json:"message"`
	QuestionID string      `json:"questionId,omitempty"`
	Index      *int        `json:"index,omitempty"`
}

type submitRequest struct {
	UserID  string          `json:"userId"`
	Answers []answerRequest `json:"answers"`
}

// answerRequest keeps the index as a pointer so an omitted index is not read as option 0.
type answerRequest struct {
	QuestionID          string `json:"questionId"`
	SelectedOptionIndex *int   `json:"selectedOptionIndex"`
}

func toAnswerSubmissions(in []answerRequest) ([]domain.AnswerSubmission, error) {
	out := make([]domain.AnswerSubmission, 0, len(in))
	for _, a := range in {
		if a.SelectedOptionIndex == nil {
			return nil, &domain.SubmissionError{QuestionID: a.QuestionID, Reason: "selectedOptionIndex is required"}
		}
		out = append(out, domain.AnswerSubmission{QuestionID: a.QuestionID, SelectedOptionIndex: *a.SelectedOptionIndex})
	}
	return out, nil
}

type answeredQuestion struct {
	QuestionID          string `json:"questionId"`
	QuestionNumber      int    `json:"questionNumber"`
	QuestionText        string `json:"questionText"`
	SelectedOptionIndex int    `json:"selectedOptionIndex"`
	SelectedOption      string `json:"selectedOption"`
	Score               int    `json:"score"`
}

type resultView struct {
	ID          string             `json:"id"`
	UserID      string             `json:"userId"`
	SurveyID    string             `json:"surveyId"`
	SurveyTitle string             `json:"surveyTitle"`
	Questions   []answeredQuestion `json:"questions"`
	TotalScore  int                `json:"totalScore"`
	ResultID    string             `json:"resultId"`
	Result      domain.ResultTier  `json:"result"`
	CompletedAt time.Time          `json:"completedAt"`
}

func (h *Handler) ListSurveys(c *gin.Context) {
	surveys, err := h.service.ListSurveys(c.Request.Context(), domain.Category(c.Query("category")))
	if err != nil {
		h.writeError(c, err)
		return
	}
	total := len(surveys)
	c.JSON(http.StatusOK, envelope{Success: true, Data: surveys, Total: &total})
}

func (h *Handler) SeedSurvey(c *gin.Context) {
	res, err := h.boot.SeedCanonical(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !res.Created {
		c.JSON(http.StatusOK, envelope{Success: true, Message: "survey already exists", Data: res.Survey})
		return
	}
	c.JSON(http.StatusCreated, envelope{Success: true, Message: "survey created", Data: res.Survey})
}

func (h *Handler) GetSurvey(c *gin.Context) {
	detail, err := h.service.GetSurvey(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Data: detail})
}

func (h *Handler) SubmitResponse(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, &domain.SubmissionError{Reason: "malformed request body"})
		return
	}
	if req.UserID == "" {
		h.writeError(c, &domain.SubmissionError{Reason: "userId is required"})
		return
	}
	answers, err := toAnswerSubmissions(req.Answers)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !h.limiter.Allow(req.UserID) {
		c.JSON(http.StatusTooManyRequests, errorEnvelope{Error: errorBody{Kind: "rate_limited", Message: errRateLimited.Error()}})
		return
	}

	result, err := h.service.Submit(c.Request.Context(), domain.Submission{
		SurveyID: c.Param("id"),
		UserID:   req.UserID,
		Answers:  answers,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, envelope{Success: true, Message: "survey response recorded", Data: newResultView(result)})
}

func (h *Handler) GetResult(c *gin.Context) {
	result, err := h.service.GetResponse(c.Request.Context(), c.Param("responseId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Data: newResultView(result)})
}

func (h *Handler) History(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		h.writeError(c, err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		h.writeError(c, err)
		return
	}

	history, err := h.service.History(c.Request.Context(), app.HistoryQuery{
		UserID:   c.Param("userId"),
		SurveyID: c.Query("surveyId"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{
		Success: true,
		Data:    history.Items,
		Total:   &history.Total,
		Page:    &history.Page,
		Pages:   &history.Pages,
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	body := newErrorBody(err)
	status := statusFor(body.Kind)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("kind", body.Kind).Error("Request failed")
	}
	c.JSON(status, errorEnvelope{Error: body})
}

// newErrorBody hides internal error text from clients.
func newErrorBody(err error) errorBody {
	body := errorBody{Kind: domain.KindOf(err), Message: err.Error()}
	if body.Kind == domain.KindInternal {
		body.Message = "internal error"
	}
	var subErr *domain.SubmissionError
	if errors.As(err, &subErr) {
		body.QuestionID = subErr.QuestionID
		body.Index = subErr.Index
	}
	return body
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidSubmission:
		return http.StatusBadRequest
	case domain.KindUnscorableResult:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.SubmissionError{Reason: name + " must be an integer"}
	}
	return v, nil
}

func newResultView(result app.Result) resultView {
	byID := make(map[string]domain.Question, len(result.Questions))
	for _, q := range result.Questions {
		byID[q.ID] = q
	}
	answered := make([]answeredQuestion, 0, len(result.Response.Answers))
	for _, a := range result.Response.Answers {
		q := byID[a.QuestionID]
		item := answeredQuestion{
			QuestionID:          a.QuestionID,
			QuestionNumber:      q.Number,
			QuestionText:        q.Text,
			SelectedOptionIndex: a.SelectedOptionIndex,
			Score:               a.Score,
		}
		if a.SelectedOptionIndex >= 0 && a.SelectedOptionIndex < len(q.Options) {
			item.SelectedOption = q.Options[a.SelectedOptionIndex].Text
		}
		answered = append(answered, item)
	}
	return resultView{
		ID:          result.Response.ID,
		UserID:      result.Response.UserID,
		SurveyID:    result.Response.SurveyID,
		SurveyTitle: result.Survey.Title,
		Questions:   answered,
		TotalScore:  result.Response.TotalScore,
		ResultID:    result.Response.ResultID,
		Result:      result.Tier,
		CompletedAt: result.Response.CompletedAt,
	}
}
