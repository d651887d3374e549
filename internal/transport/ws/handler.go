package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizbot/internal/logging"
	"github.com/gokatarajesh/quizbot/internal/question"
	"github.com/gokatarajesh/quizbot/internal/session"
	httperrors "github.com/gokatarajesh/quizbot/pkg/http/errors"
	hub "github.com/gokatarajesh/quizbot/pkg/http/ws"
)

// Sessions is the session lifecycle driven from WebSocket clients.
type Sessions interface {
	StartSession(ctx context.Context, req session.StartRequest) error
	StopSession(ctx context.Context, userID int64) (*session.Summary, error)
	HandleAnswer(ctx context.Context, ev session.AnswerEvent)
}

// HandlerOptions configures the WebSocket handler.
type HandlerOptions struct {
	// DefaultTimeout applies when start_session omits timeout_seconds.
	DefaultTimeout time.Duration
	// AllowedOrigins lists browser origins allowed to connect.
	AllowedOrigins []string
}

// Handler manages WebSocket connections and routes session messages.
type Handler struct {
	sessions       Sessions
	catalog        question.Lister
	hub            *hub.Hub
	transport      *Transport
	upgrader       *websocket.Upgrader
	defaultTimeout time.Duration
	logger         zerolog.Logger
}

// NewHandler creates a session WebSocket handler.
func NewHandler(sessions Sessions, catalog question.Lister, h *hub.Hub, transport *Transport, opts HandlerOptions, logger zerolog.Logger) *Handler {
	timeout := opts.DefaultTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{
		sessions:       sessions,
		catalog:        catalog,
		hub:            h,
		transport:      transport,
		upgrader:       hub.NewUpgrader(opts.AllowedOrigins),
		defaultTimeout: timeout,
		logger:         logger.With().Str("component", "ws_handler").Logger(),
	}
}

// HandleWebSocket upgrades the request. The caller identifies itself with
// the user_id query parameter.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidUserID, "user_id must be a positive integer")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.HandleConnection(conn, userID)
}

// HandleConnection serves one client until it disconnects. A session still
// running when the socket closes is stopped.
func (h *Handler) HandleConnection(conn *websocket.Conn, userID int64) {
	logger := h.logger.With().Int64("user_id", userID).Logger()
	wsConn := hub.NewConnection(conn, logger)
	h.hub.RegisterConnection(userID, wsConn)

	go wsConn.WritePump()

	ctx := logging.IntoContext(context.Background(), logger)
	wsConn.ReadPump(func(msg hub.Message) error {
		return h.handleMessage(ctx, userID, msg)
	})

	if h.hub.UnregisterConnection(userID, wsConn) {
		if _, err := h.sessions.StopSession(ctx, userID); err != nil && !errors.Is(err, session.ErrNoActiveSession) {
			logger.Warn().Err(err).Msg("stop session on disconnect failed")
		}
	}
}

// handleMessage routes incoming WebSocket messages.
func (h *Handler) handleMessage(ctx context.Context, userID int64, msg hub.Message) error {
	switch msg.Type {
	case hub.TypeStartSession:
		return h.handleStart(ctx, userID, msg.Payload)
	case hub.TypeStopSession:
		return h.handleStop(ctx, userID)
	case hub.TypeAnswer:
		return h.handleAnswer(ctx, userID, msg.Payload)
	case hub.TypeListBanks:
		return h.handleListBanks(ctx, userID)
	default:
		return h.sendError(userID, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (h *Handler) handleStart(ctx context.Context, userID int64, payload json.RawMessage) error {
	var req hub.StartSessionPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(userID, httperrors.ErrCodeInvalidPayload, "Invalid start_session payload")
	}

	timeout := h.defaultTimeout
	if req.TimeoutSeconds != 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	err := h.sessions.StartSession(ctx, session.StartRequest{
		UserID:  userID,
		ChatID:  userID,
		Subject: req.Subject,
		Topic:   req.Topic,
		Timeout: timeout,
	})
	if err != nil {
		code, message := errorCode(err)
		if code == httperrors.ErrCodeInternalError {
			l := logging.FromContext(ctx)
			l.Error().Err(err).Int64("user_id", userID).Msg("start session failed")
		}
		return h.sendError(userID, code, message)
	}
	return nil
}

func (h *Handler) handleStop(ctx context.Context, userID int64) error {
	summary, err := h.sessions.StopSession(ctx, userID)
	if err != nil {
		code, message := errorCode(err)
		return h.sendError(userID, code, message)
	}
	if summary == nil {
		return h.transport.SendMessage(ctx, userID, "Quiz stopped! No questions were shown.")
	}
	if err := h.transport.SendMessage(ctx, userID, "Quiz stopped!"); err != nil {
		return err
	}
	return h.transport.DeliverSummary(ctx, userID, *summary)
}

func (h *Handler) handleAnswer(ctx context.Context, userID int64, payload json.RawMessage) error {
	var req hub.AnswerPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.ExchangeID == "" {
		return h.sendError(userID, httperrors.ErrCodeInvalidPayload, "Invalid answer payload")
	}

	selected := session.NoSelection
	if req.Option != nil {
		selected = *req.Option
	}
	h.sessions.HandleAnswer(ctx, session.AnswerEvent{
		ExchangeID: req.ExchangeID,
		UserID:     userID,
		Selected:   selected,
	})
	return nil
}

func (h *Handler) handleListBanks(ctx context.Context, userID int64) error {
	banks, err := question.Catalog(ctx, h.catalog)
	if err != nil {
		h.logger.Error().Err(err).Msg("list banks failed")
		return h.sendError(userID, httperrors.ErrCodeInternalError, "Could not list banks")
	}

	out := hub.BanksPayload{Banks: make([]hub.Bank, 0, len(banks))}
	for _, b := range banks {
		out.Banks = append(out.Banks, hub.Bank{Subject: b.Subject, Topic: b.Topic})
	}
	msg, err := hub.NewMessage(hub.TypeBanks, out)
	if err != nil {
		return err
	}
	return h.hub.SendToUser(userID, msg)
}

func (h *Handler) sendError(userID int64, code, message string) error {
	msg, err := hub.NewMessage(hub.TypeError, hub.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return err
	}
	return h.hub.SendToUser(userID, msg)
}

func errorCode(err error) (code, message string) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return httperrors.ErrCodeNotFound, "Topic not found"
	case errors.Is(err, session.ErrEmpty):
		return httperrors.ErrCodeEmptyBank, "Topic has no valid questions"
	case errors.Is(err, session.ErrInvalidTimeout):
		return httperrors.ErrCodeInvalidTimeout, "timeout_seconds must be positive"
	case errors.Is(err, session.ErrInvalidTopic):
		return httperrors.ErrCodeInvalidPayload, "topic is required"
	case errors.Is(err, session.ErrNoActiveSession):
		return httperrors.ErrCodeNoActiveSession, "No quiz is running"
	case errors.Is(err, session.ErrShuttingDown):
		return httperrors.ErrCodeShuttingDown, "Server is shutting down"
	default:
		return httperrors.ErrCodeInternalError, "Internal error"
	}
}
