package ws

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/quizbot/internal/session"
	hub "github.com/gokatarajesh/quizbot/pkg/http/ws"
)

// Transport renders sessions over the WebSocket hub. The chat id of a
// WebSocket session is the user id.
type Transport struct {
	hub *hub.Hub
}

var _ session.Transport = (*Transport)(nil)

func NewTransport(h *hub.Hub) *Transport {
	return &Transport{hub: h}
}

func (t *Transport) SendMessage(_ context.Context, chatID int64, text string) error {
	return t.send(chatID, hub.TypeMessage, hub.TextPayload{Text: text})
}

func (t *Transport) CreateExchange(ctx context.Context, req session.ExchangeRequest) (session.ExchangeHandle, error) {
	if err := ctx.Err(); err != nil {
		return session.ExchangeHandle{}, err
	}
	handle := session.ExchangeHandle{ID: uuid.NewString(), ChatID: req.ChatID}
	err := t.send(req.ChatID, hub.TypeQuestion, hub.QuestionPayload{
		ExchangeID:     handle.ID,
		Number:         req.Number,
		Total:          req.Total,
		Prompt:         req.Prompt,
		Options:        req.Options,
		TimeoutSeconds: int(req.Timeout / time.Second),
	})
	if err != nil {
		return session.ExchangeHandle{}, err
	}
	return handle, nil
}

func (t *Transport) CloseExchange(_ context.Context, handle session.ExchangeHandle) error {
	return t.send(handle.ChatID, hub.TypeExchangeClosed, hub.ExchangeClosedPayload{ExchangeID: handle.ID})
}

func (t *Transport) DeliverSummary(_ context.Context, chatID int64, summary session.Summary) error {
	return t.send(chatID, hub.TypeSummary, summaryPayload(summary))
}

func (t *Transport) send(userID int64, msgType string, payload any) error {
	msg, err := hub.NewMessage(msgType, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msgType, err)
	}
	if err := t.hub.SendToUser(userID, msg); err != nil {
		return fmt.Errorf("send %s: %w", msgType, err)
	}
	return nil
}

func summaryPayload(s session.Summary) hub.SummaryPayload {
	return hub.SummaryPayload{
		Subject:        s.Subject,
		Topic:          s.Topic,
		Total:          s.Total,
		Correct:        s.Correct,
		Wrong:          s.Wrong,
		Missed:         s.Missed,
		NotAttended:    s.NotAttended,
		ElapsedSeconds: int(s.Elapsed / time.Second),
		CorrectPrompts: s.CorrectPrompts,
		WrongPrompts:   s.WrongPrompts,
		MissedPrompts:  s.MissedPrompts,
		Stopped:        s.Stopped,
	}
}
