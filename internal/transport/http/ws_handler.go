package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"survey-scoring-service/internal/app"
	"survey-scoring-service/internal/domain"
)

// WSHandler streams a user's newly recorded responses and accepts submissions over one socket.
type WSHandler struct {
	service  *app.SurveyService
	feed     *app.ResponseFeed
	limiter  *SubmissionLimiter
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.SurveyService, feed *app.ResponseFeed, limiter *SubmissionLimiter, logger *logrus.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		feed:    feed,
		limiter: limiter,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type submitPayload struct {
	SurveyID string          `json:"surveyId"`
	Answers  []answerRequest `json:"answers"`
}

type subscribedPayload struct {
	UserID string `json:"userId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the request and relays feed updates for the userId query parameter.
// Clients may send {"type":"submit"} messages; each gets a "result" or "error" reply.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel := h.feed.Subscribe(userID)
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer; gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.WithError(err).WithField("user_id", userID).Debug("Websocket write failed")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case resp, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "response", Payload: resp}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "subscribed", Payload: subscribedPayload{UserID: userID}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "submit":
			var payload submitPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage(&domain.SubmissionError{Reason: "malformed submit payload"})
				continue
			}
			answers, err := toAnswerSubmissions(payload.Answers)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			if !h.limiter.Allow(userID) {
				send <- outboundMessage[any]{Type: "error", Payload: errorBody{Kind: "rate_limited", Message: errRateLimited.Error()}}
				continue
			}
			result, err := h.service.Submit(r.Context(), domain.Submission{
				SurveyID: payload.SurveyID,
				UserID:   userID,
				Answers:  answers,
			})
			if err != nil {
				if kind := domain.KindOf(err); kind == domain.KindInternal || kind == domain.KindConfiguration {
					h.log.WithError(err).WithField("user_id", userID).Error("Websocket submission failed")
				}
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage[any]{Type: "result", Payload: newResultView(result)}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorBody{Kind: domain.KindInvalidSubmission, Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: newErrorBody(err)}
}
