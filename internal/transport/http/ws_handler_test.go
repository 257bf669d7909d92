package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketSubmitAndFeed(t *testing.T) {
	conn := dialFeed(t, newTestEnv(t, nil), "u1")

	// Expect subscribed event first.
	_, payload := readNext(t, conn, "subscribed")
	assert.Equal(t, "u1", payload["userId"])

	submit := map[string]any{
		"type": "submit",
		"payload": map[string]any{
			"surveyId": "survey-1",
			"answers": []map[string]any{
				{"questionId": "q1", "selectedOptionIndex": 3},
				{"questionId": "q2", "selectedOptionIndex": 2},
			},
		},
	}
	require.NoError(t, conn.WriteJSON(submit))

	// Expect the direct result and the feed update, in either order.
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		typ, payload := readNext(t, conn, "")
		seen[typ] = true
		if typ == "result" {
			assert.Equal(t, float64(5), payload["totalScore"])
		}
	}
	assert.True(t, seen["result"], "expected a result message")
	assert.True(t, seen["response"], "expected a feed response message")
}

func TestWebSocketReportsInvalidSubmission(t *testing.T) {
	conn := dialFeed(t, newTestEnv(t, nil), "u1")
	readNext(t, conn, "subscribed")

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "submit",
		"payload": map[string]any{"surveyId": "survey-1", "answers": []map[string]any{{"questionId": "q1", "selectedOptionIndex": 9}}},
	}))
	_, payload := readNext(t, conn, "error")
	assert.Equal(t, "invalid_submission", payload["kind"])
	assert.Equal(t, "q1", payload["questionId"])
}

func TestWebSocketRejectsMissingOptionIndex(t *testing.T) {
	conn := dialFeed(t, newTestEnv(t, nil), "u1")
	readNext(t, conn, "subscribed")

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "submit",
		"payload": map[string]any{"surveyId": "survey-1", "answers": []map[string]any{
			{"questionId": "q1", "selectedOptionIndex": 1},
			{"questionId": "q2"},
		}},
	}))
	_, payload := readNext(t, conn, "error")
	assert.Equal(t, "invalid_submission", payload["kind"])
	assert.Equal(t, "q2", payload["questionId"])
	assert.Contains(t, payload["message"], "selectedOptionIndex is required")
}

func TestWebSocketRequiresUser(t *testing.T) {
	server := httptest.NewServer(newTestEnv(t, nil).router)
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws/responses", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func dialFeed(t *testing.T, env testEnv, userID string) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(env.router)
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws/responses?userId="+userID, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readNext(t *testing.T, conn *websocket.Conn, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	if expect != "" {
		require.Equal(t, expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
