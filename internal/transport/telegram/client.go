package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizbot/internal/session"
)

// Telegram accepts open_period values between 5 and 600 seconds.
const (
	minOpenPeriod = 5
	maxOpenPeriod = 600
)

const pollQuestion = "Pick the correct answer 👇"

// botAPI is the slice of *tgbotapi.BotAPI the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Client renders sessions as Telegram quiz polls.
type Client struct {
	api       botAPI
	callbacks *callbackCodec
	logger    zerolog.Logger
}

var _ session.Transport = (*Client)(nil)

// NewBotAPI dials the Bot API with token.
func NewBotAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	api.Debug = debug
	return api, nil
}

func NewClient(api botAPI, logger zerolog.Logger) *Client {
	return &Client{
		api:       api,
		callbacks: newCallbackCodec(),
		logger:    logger.With().Str("component", "telegram_client").Logger(),
	}
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// CreateExchange posts the question header followed by a non-anonymous
// quiz poll that Telegram closes after the timeout.
func (c *Client) CreateExchange(ctx context.Context, req session.ExchangeRequest) (session.ExchangeHandle, error) {
	if err := ctx.Err(); err != nil {
		return session.ExchangeHandle{}, err
	}

	header := fmt.Sprintf("📘 (Q%d/%d)\n\n%s", req.Number, req.Total, req.Prompt)
	if _, err := c.api.Send(tgbotapi.NewMessage(req.ChatID, header)); err != nil {
		return session.ExchangeHandle{}, fmt.Errorf("send question header: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return session.ExchangeHandle{}, err
	}

	poll := tgbotapi.NewPoll(req.ChatID, pollQuestion, req.Options...)
	poll.Type = "quiz"
	poll.IsAnonymous = false
	poll.CorrectOptionID = int64(req.CorrectIndex)
	poll.OpenPeriod = openPeriod(req.Timeout)

	msg, err := c.api.Send(poll)
	if err != nil {
		return session.ExchangeHandle{}, fmt.Errorf("send poll: %w", err)
	}
	if msg.Poll == nil {
		return session.ExchangeHandle{}, errors.New("send poll: response carried no poll")
	}

	return session.ExchangeHandle{
		ID:        msg.Poll.ID,
		ChatID:    req.ChatID,
		MessageID: msg.MessageID,
	}, nil
}

func (c *Client) CloseExchange(_ context.Context, handle session.ExchangeHandle) error {
	if _, err := c.api.Request(tgbotapi.NewStopPoll(handle.ChatID, handle.MessageID)); err != nil {
		return fmt.Errorf("stop poll: %w", err)
	}
	return nil
}

func (c *Client) DeliverSummary(ctx context.Context, chatID int64, summary session.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, formatSummary(summary))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = c.summaryKeyboard(summary.Retest)
	_, err := c.api.Send(msg)
	if err == nil {
		return nil
	}
	c.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("markdown summary rejected, resending as plain text")

	msg.ParseMode = ""
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("send summary: %w", err)
	}
	return nil
}

func openPeriod(d time.Duration) int {
	secs := int(d / time.Second)
	if secs < minOpenPeriod {
		return minOpenPeriod
	}
	if secs > maxOpenPeriod {
		return maxOpenPeriod
	}
	return secs
}

func (c *Client) summaryKeyboard(retest session.RetestParams) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 Retest", c.callbacks.encodeRetest(retest.Subject, retest.Topic)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🆕 New Test", dataNew),
		),
	)
}
