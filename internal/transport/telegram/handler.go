package telegram

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizbot/internal/session"
)

const (
	textWelcome = "Welcome! 🎯\n\nOpen the menu and choose \"Start quiz\", or type /quiz to begin."
	textHelp    = "/quiz - pick a subject, topic and timer\n/stop - stop the running quiz\n/help - show this message"
)

// Sessions is the session lifecycle the bot drives.
type Sessions interface {
	StartSession(ctx context.Context, req session.StartRequest) error
	StopSession(ctx context.Context, userID int64) (*session.Summary, error)
	HandleAnswer(ctx context.Context, ev session.AnswerEvent)
}

// Catalog lists the playable banks.
type Catalog interface {
	Subjects(ctx context.Context) ([]string, error)
	Topics(ctx context.Context, subject string) ([]string, error)
}

// HandlerOptions configures the update handler.
type HandlerOptions struct {
	TimerChoices  []int
	UpdateTimeout int
}

type selection struct {
	subject string
	topic   string
}

// Handler consumes Bot API updates: commands, menu callbacks and poll
// answers.
type Handler struct {
	api      botAPI
	client   *Client
	sessions Sessions
	catalog  Catalog
	timers   []int
	timeout  int
	logger   zerolog.Logger

	mu      sync.RWMutex
	choices map[int64]selection
}

func NewHandler(api botAPI, client *Client, sessions Sessions, catalog Catalog, opts HandlerOptions, logger zerolog.Logger) *Handler {
	timers := opts.TimerChoices
	if len(timers) == 0 {
		timers = []int{30, 45, 60}
	}
	timeout := opts.UpdateTimeout
	if timeout <= 0 {
		timeout = 60
	}
	return &Handler{
		api:      api,
		client:   client,
		sessions: sessions,
		catalog:  catalog,
		timers:   timers,
		timeout:  timeout,
		logger:   logger.With().Str("component", "telegram_handler").Logger(),
		choices:  make(map[int64]selection),
	}
}

// Run registers the command list and processes updates until ctx ends.
func (h *Handler) Run(ctx context.Context) error {
	if err := h.registerCommands(); err != nil {
		h.logger.Warn().Err(err).Msg("set bot commands failed")
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = h.timeout
	cfg.AllowedUpdates = []string{"message", "callback_query", "poll_answer"}
	updates := h.api.GetUpdatesChan(cfg)

	h.logger.Info().Msg("telegram update loop started")
	for {
		select {
		case <-ctx.Done():
			h.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			h.HandleUpdate(ctx, update)
		}
	}
}

func (h *Handler) registerCommands() error {
	cmds := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Start the bot"},
		tgbotapi.BotCommand{Command: "quiz", Description: "Start quiz"},
		tgbotapi.BotCommand{Command: "stop", Description: "Stop the running quiz"},
		tgbotapi.BotCommand{Command: "help", Description: "Show help"},
	)
	_, err := h.api.Request(cmds)
	return err
}

// HandleUpdate dispatches a single update.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.PollAnswer != nil:
		h.handlePollAnswer(ctx, update.PollAnswer)
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		h.handleCommand(ctx, update.Message)
	}
}

func (h *Handler) handlePollAnswer(ctx context.Context, answer *tgbotapi.PollAnswer) {
	selected := session.NoSelection
	if len(answer.OptionIDs) > 0 {
		selected = answer.OptionIDs[0]
	}
	h.sessions.HandleAnswer(ctx, session.AnswerEvent{
		ExchangeID: answer.PollID,
		UserID:     answer.User.ID,
		Selected:   selected,
	})
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		h.reply(ctx, chatID, textWelcome)
	case "help":
		h.reply(ctx, chatID, textHelp)
	case "quiz":
		h.sendSubjectMenu(ctx, chatID, 0)
	case "stop":
		if msg.From == nil {
			return
		}
		h.stop(ctx, chatID, msg.From.ID)
	default:
		h.reply(ctx, chatID, "Unknown command. Try /help.")
	}
}

func (h *Handler) stop(ctx context.Context, chatID, userID int64) {
	summary, err := h.sessions.StopSession(ctx, userID)
	switch {
	case errors.Is(err, session.ErrNoActiveSession):
		h.reply(ctx, chatID, "❌ No quiz is running right now.")
		return
	case err != nil:
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("stop session failed")
		return
	case summary == nil:
		h.reply(ctx, chatID, "⛔ Quiz stopped! No questions were shown.")
		return
	}

	h.reply(ctx, chatID, "⛔ Quiz stopped!")
	if err := h.client.DeliverSummary(ctx, chatID, *summary); err != nil {
		h.logger.Warn().Err(err).Int64("user_id", userID).Msg("deliver summary failed")
	}
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := h.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		h.logger.Debug().Err(err).Msg("answer callback failed")
	}
	if q.Message == nil || q.Message.Chat == nil || q.From == nil {
		return
	}
	chatID := q.Message.Chat.ID
	messageID := q.Message.MessageID
	userID := q.From.ID

	cb := h.client.callbacks.parse(q.Data)
	switch cb.kind {
	case callbackSubject:
		h.sendTopicMenu(ctx, chatID, messageID, userID, cb.subject)
	case callbackTopic:
		h.remember(userID, selection{subject: cb.subject, topic: cb.topic})
		h.edit(chatID, messageID, "⏱️ How much time per question?", h.timerKeyboard())
	case callbackTimer:
		h.startQuiz(ctx, chatID, messageID, userID, cb.seconds)
	case callbackRetest:
		h.retest(ctx, chatID, messageID, userID, cb.subject, cb.topic)
	case callbackNew:
		h.sendSubjectMenu(ctx, chatID, 0)
	default:
		h.logger.Debug().Str("data", q.Data).Msg("unknown callback data")
	}
}

func (h *Handler) startQuiz(ctx context.Context, chatID int64, messageID int, userID int64, secs int) {
	if !slices.Contains(h.timers, secs) {
		h.edit(chatID, messageID, "❌ Unsupported timer.", nil)
		return
	}
	sel, ok := h.selected(userID)
	if !ok || sel.topic == "" {
		h.edit(chatID, messageID, "❌ Error: no topic selected.", nil)
		return
	}

	err := h.sessions.StartSession(ctx, session.StartRequest{
		UserID:  userID,
		ChatID:  chatID,
		Subject: sel.subject,
		Topic:   sel.topic,
		Timeout: time.Duration(secs) * time.Second,
	})
	switch {
	case errors.Is(err, session.ErrNotFound):
		h.edit(chatID, messageID, "❌ That topic was not found.", nil)
		return
	case errors.Is(err, session.ErrEmpty):
		h.edit(chatID, messageID, "❌ That topic has no valid questions.", nil)
		return
	case err != nil:
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("start session failed")
		h.edit(chatID, messageID, "❌ Could not start the quiz. Please try again.", nil)
		return
	}

	h.edit(chatID, messageID, fmt.Sprintf("✅ %s\n⏱️ %d seconds per question.", sel.topic, secs), nil)
}

func (h *Handler) retest(ctx context.Context, chatID int64, messageID int, userID int64, subject, topic string) {
	topics, err := h.catalog.Topics(ctx, subject)
	if err != nil || !slices.Contains(topics, topic) {
		h.sendSubjectMenu(ctx, chatID, 0)
		return
	}
	h.remember(userID, selection{subject: subject, topic: topic})
	h.edit(chatID, messageID, fmt.Sprintf("🔁 Retest: %s\n\n⏱️ Choose the time per question 👇", topic), h.timerKeyboard())
}

// sendSubjectMenu lists subjects and root topics. A zero messageID posts a
// new message instead of editing.
func (h *Handler) sendSubjectMenu(ctx context.Context, chatID int64, messageID int) {
	kb, ok := h.subjectKeyboard(ctx)
	if !ok {
		h.reply(ctx, chatID, "📂 No subjects are available.")
		return
	}
	const text = "📘 Choose a subject 👇"
	if messageID == 0 {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = kb
		if _, err := h.api.Send(msg); err != nil {
			h.logger.Warn().Err(err).Msg("send subject menu failed")
		}
		return
	}
	h.edit(chatID, messageID, text, &kb)
}

func (h *Handler) sendTopicMenu(ctx context.Context, chatID int64, messageID int, userID int64, subject string) {
	topics, err := h.catalog.Topics(ctx, subject)
	if err != nil {
		h.edit(chatID, messageID, "❌ That subject was not found.", nil)
		return
	}
	if len(topics) == 0 {
		kb, ok := h.subjectKeyboard(ctx)
		text := fmt.Sprintf("'%s' has no topics.\n\n📘 Choose a subject 👇", subject)
		if !ok {
			h.edit(chatID, messageID, text, nil)
			return
		}
		h.edit(chatID, messageID, text, &kb)
		return
	}

	h.remember(userID, selection{subject: subject})
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(topics))
	for _, t := range topics {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(t, h.client.callbacks.encodeTopic(subject, t)),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	h.edit(chatID, messageID, fmt.Sprintf("📘 Choose a topic in '%s' 👇", subject), &kb)
}

func (h *Handler) subjectKeyboard(ctx context.Context) (tgbotapi.InlineKeyboardMarkup, bool) {
	subjects, err := h.catalog.Subjects(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("list subjects failed")
	}
	roots, err := h.catalog.Topics(ctx, "")
	if err != nil {
		h.logger.Debug().Err(err).Msg("list root topics failed")
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, s := range subjects {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(s, h.client.callbacks.encodeSubject(s)),
		))
	}
	for _, t := range roots {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(t, h.client.callbacks.encodeTopic("", t)),
		))
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func (h *Handler) timerKeyboard() *tgbotapi.InlineKeyboardMarkup {
	buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(h.timers))
	for _, secs := range h.timers {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(formatTimer(secs), encodeTimer(secs)))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(buttons)
	return &kb
}

func (h *Handler) remember(userID int64, sel selection) {
	h.mu.Lock()
	h.choices[userID] = sel
	h.mu.Unlock()
}

func (h *Handler) selected(userID int64) (selection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sel, ok := h.choices[userID]
	return sel, ok
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	if err := h.client.SendMessage(ctx, chatID, text); err != nil {
		h.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("send message failed")
	}
}

func (h *Handler) edit(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	var cfg tgbotapi.EditMessageTextConfig
	if kb != nil {
		cfg = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *kb)
	} else {
		cfg = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	if _, err := h.api.Send(cfg); err != nil {
		h.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("edit message failed")
	}
}
