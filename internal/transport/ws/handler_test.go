package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quizbot/internal/question"
	"github.com/gokatarajesh/quizbot/internal/session"
	httperrors "github.com/gokatarajesh/quizbot/pkg/http/errors"
	hub "github.com/gokatarajesh/quizbot/pkg/http/ws"
)

const bankCSV = "question,option1,option2,option3,answer\n" +
	"First?,right,wrong,other,a\n" +
	"Second?,right,wrong,other,1\n"

type harness struct {
	server  *httptest.Server
	service *session.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "general.csv"), []byte(bankCSV), 0o644))

	logger := zerolog.Nop()
	source := question.NewDirSource(root)
	h := hub.NewHub(logger)
	transport := NewTransport(h)
	svc := session.NewService(question.NewLoader(source, logger, question.LoaderOptions{}), transport, session.ServiceOptions{TransitionDelay: -1}, logger)
	handler := NewHandler(svc, source, h, transport, HandlerOptions{}, logger)

	srv := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})
	return &harness{server: srv, service: svc}
}

func (h *harness) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/?user_id=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	msg, err := hub.NewMessage(msgType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))
}

func read(t *testing.T, conn *websocket.Conn, wantType string, out any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg hub.Message
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, wantType, msg.Type, string(msg.Payload))
	if out != nil {
		require.NoError(t, json.Unmarshal(msg.Payload, out))
	}
}

func indexOf(options []string, want string) int {
	for i, o := range options {
		if o == want {
			return i
		}
	}
	return -1
}

func TestSessionOverWebSocket(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "42")

	send(t, conn, hub.TypeListBanks, nil)
	var banks hub.BanksPayload
	read(t, conn, hub.TypeBanks, &banks)
	assert.Equal(t, []hub.Bank{{Topic: "general"}}, banks.Banks)

	send(t, conn, hub.TypeStartSession, hub.StartSessionPayload{Topic: "general", TimeoutSeconds: 5})

	var intro hub.TextPayload
	read(t, conn, hub.TypeMessage, &intro)
	assert.Contains(t, intro.Text, "general quiz starting")
	assert.Contains(t, intro.Text, "2 questions")

	var q1 hub.QuestionPayload
	read(t, conn, hub.TypeQuestion, &q1)
	assert.Equal(t, 1, q1.Number)
	assert.Equal(t, 2, q1.Total)
	assert.Equal(t, 5, q1.TimeoutSeconds)
	assert.NotEmpty(t, q1.ExchangeID)
	right := indexOf(q1.Options, "right")
	require.GreaterOrEqual(t, right, 0)
	send(t, conn, hub.TypeAnswer, hub.AnswerPayload{ExchangeID: q1.ExchangeID, Option: &right})

	var q2 hub.QuestionPayload
	read(t, conn, hub.TypeQuestion, &q2)
	assert.Equal(t, 2, q2.Number)
	send(t, conn, hub.TypeAnswer, hub.AnswerPayload{ExchangeID: q2.ExchangeID})

	var summary hub.SummaryPayload
	read(t, conn, hub.TypeSummary, &summary)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Correct)
	assert.Equal(t, 1, summary.Wrong)
	assert.Equal(t, 0, summary.NotAttended)
	assert.False(t, summary.Stopped)

	require.Eventually(t, func() bool { return h.service.ActiveCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	send(t, conn, hub.TypeStopSession, nil)
	var errPayload hub.ErrorPayload
	read(t, conn, hub.TypeError, &errPayload)
	assert.Equal(t, httperrors.ErrCodeNoActiveSession, errPayload.Code)
}

func TestStopOverWebSocket(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "43")

	send(t, conn, hub.TypeStartSession, hub.StartSessionPayload{Topic: "general", TimeoutSeconds: 30})
	read(t, conn, hub.TypeMessage, nil)
	var q1 hub.QuestionPayload
	read(t, conn, hub.TypeQuestion, &q1)

	require.Eventually(t, func() bool { return h.service.Active(43) }, time.Second, 5*time.Millisecond)
	send(t, conn, hub.TypeStopSession, nil)

	var closed hub.ExchangeClosedPayload
	read(t, conn, hub.TypeExchangeClosed, &closed)
	assert.Equal(t, q1.ExchangeID, closed.ExchangeID)

	var text hub.TextPayload
	read(t, conn, hub.TypeMessage, &text)
	assert.Equal(t, "Quiz stopped!", text.Text)

	var summary hub.SummaryPayload
	read(t, conn, hub.TypeSummary, &summary)
	assert.True(t, summary.Stopped)
	assert.Equal(t, 2, summary.NotAttended)
}

func TestWebSocketErrors(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "44")

	send(t, conn, hub.TypeStartSession, hub.StartSessionPayload{Topic: "missing", TimeoutSeconds: 5})
	var errPayload hub.ErrorPayload
	read(t, conn, hub.TypeError, &errPayload)
	assert.Equal(t, httperrors.ErrCodeNotFound, errPayload.Code)

	send(t, conn, hub.TypeStartSession, hub.StartSessionPayload{Topic: "general", TimeoutSeconds: -1})
	read(t, conn, hub.TypeError, &errPayload)
	assert.Equal(t, httperrors.ErrCodeInvalidTimeout, errPayload.Code)

	send(t, conn, "dance", nil)
	read(t, conn, hub.TypeError, &errPayload)
	assert.Equal(t, httperrors.ErrCodeUnknownMessageType, errPayload.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"answer","payload":{"exchange_id":""}}`)))
	read(t, conn, hub.TypeError, &errPayload)
	assert.Equal(t, httperrors.ErrCodeInvalidPayload, errPayload.Code)
}

func TestDisconnectStopsSession(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "45")

	send(t, conn, hub.TypeStartSession, hub.StartSessionPayload{Topic: "general", TimeoutSeconds: 30})
	read(t, conn, hub.TypeMessage, nil)
	read(t, conn, hub.TypeQuestion, nil)
	require.True(t, h.service.Active(45))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return !h.service.Active(45) }, 2*time.Second, 10*time.Millisecond)
}

func TestUpgradeRequiresUserID(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.server.URL + "/?user_id=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body httperrors.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, httperrors.ErrCodeInvalidUserID, body.Error)
}

type brokenSessions struct{}

func (brokenSessions) StartSession(context.Context, session.StartRequest) error {
	return errors.New("read bank: input/output error")
}

func (brokenSessions) StopSession(context.Context, int64) (*session.Summary, error) {
	return nil, session.ErrNoActiveSession
}

func (brokenSessions) HandleAnswer(context.Context, session.AnswerEvent) {}

func TestStartFailureReportsInternalError(t *testing.T) {
	logger := zerolog.Nop()
	h := hub.NewHub(logger)
	handler := NewHandler(brokenSessions{}, question.NewDirSource(t.TempDir()), h, NewTransport(h), HandlerOptions{}, logger)
	srv := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/?user_id=46", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	send(t, conn, hub.TypeStartSession, hub.StartSessionPayload{Topic: "general"})
	var errPayload hub.ErrorPayload
	read(t, conn, hub.TypeError, &errPayload)
	assert.Equal(t, httperrors.ErrCodeInternalError, errPayload.Code)
}
