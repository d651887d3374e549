package telegram

import (
	"context"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quizbot/internal/session"
)

func TestCreateExchangeSendsQuizPoll(t *testing.T) {
	bot := newFakeBot()
	client := NewClient(bot, zerolog.Nop())

	handle, err := client.CreateExchange(context.Background(), session.ExchangeRequest{
		ChatID:       77,
		Number:       2,
		Total:        5,
		Prompt:       "Largest planet?",
		Options:      []string{"Mars", "Jupiter", "Venus"},
		CorrectIndex: 1,
		Timeout:      45 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, session.ExchangeHandle{ID: "poll-1", ChatID: 77, MessageID: 2}, handle)

	sent := bot.Sent()
	require.Len(t, sent, 2)

	header, ok := sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, "📘 (Q2/5)\n\nLargest planet?", header.Text)

	poll, ok := sent[1].(tgbotapi.SendPollConfig)
	require.True(t, ok)
	assert.Equal(t, "quiz", poll.Type)
	assert.False(t, poll.IsAnonymous)
	assert.Equal(t, int64(1), poll.CorrectOptionID)
	assert.Equal(t, 45, poll.OpenPeriod)
	assert.Equal(t, []string{"Mars", "Jupiter", "Venus"}, poll.Options)
}

func TestCreateExchangeHonoursCancellation(t *testing.T) {
	bot := newFakeBot()
	client := NewClient(bot, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.CreateExchange(ctx, session.ExchangeRequest{ChatID: 1, Options: []string{"a", "b"}, Timeout: time.Second})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, bot.Sent())
}

func TestCloseExchangeStopsPoll(t *testing.T) {
	bot := newFakeBot()
	client := NewClient(bot, zerolog.Nop())

	require.NoError(t, client.CloseExchange(context.Background(), session.ExchangeHandle{ID: "p", ChatID: 9, MessageID: 31}))

	reqs := bot.Requests()
	require.Len(t, reqs, 1)
	stop, ok := reqs[0].(tgbotapi.StopPollConfig)
	require.True(t, ok)
	assert.Equal(t, int64(9), stop.ChatID)
	assert.Equal(t, 31, stop.MessageID)
}

func TestDeliverSummary(t *testing.T) {
	bot := newFakeBot()
	client := NewClient(bot, zerolog.Nop())

	err := client.DeliverSummary(context.Background(), 5, session.Summary{
		Topic:       "general",
		Total:       5,
		Correct:     1,
		Wrong:       1,
		Missed:      1,
		NotAttended: 2,
		Elapsed:     95 * time.Second,
		Stopped:     true,
		Retest:      session.RetestParams{Topic: "general"},
	})
	require.NoError(t, err)

	msg, ok := bot.last().(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, tgbotapi.ModeMarkdown, msg.ParseMode)
	assert.Contains(t, msg.Text, "Quiz stopped")
	assert.Contains(t, msg.Text, "Duration: 0:01:35")
	assert.Contains(t, msg.Text, "Not Attended: 2")
	assert.Contains(t, msg.Text, "Score: 1/5")

	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "retest:@root|general", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "new", *kb.InlineKeyboard[1][0].CallbackData)
}

func TestOpenPeriodClamped(t *testing.T) {
	assert.Equal(t, minOpenPeriod, openPeriod(time.Second))
	assert.Equal(t, 30, openPeriod(30*time.Second))
	assert.Equal(t, maxOpenPeriod, openPeriod(time.Hour))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "1:02:03", formatElapsed(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "30 sec", formatTimer(30))
	assert.Equal(t, "1 min", formatTimer(60))
}

func TestDeliverSummaryWithLongBankLabels(t *testing.T) {
	bot := newFakeBot()
	client := NewClient(bot, zerolog.Nop())
	retest := session.RetestParams{
		Subject: "world_history_" + strings.Repeat("x", 30),
		Topic:   "the_industrial_revolution_in_continental_europe",
	}

	require.NoError(t, client.DeliverSummary(context.Background(), 5, session.Summary{Topic: retest.Topic, Total: 1, Retest: retest}))

	msg := bot.last().(tgbotapi.MessageConfig)
	kb := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	data := *kb.InlineKeyboard[0][0].CallbackData
	assert.LessOrEqual(t, len(data), maxCallbackData)
	assert.Equal(t, callback{kind: callbackRetest, subject: retest.Subject, topic: retest.Topic}, client.callbacks.parse(data))
}

func TestDeliverSummaryFallsBackToPlainText(t *testing.T) {
	bot := newFakeBot()
	bot.rejectMarkdown = true
	client := NewClient(bot, zerolog.Nop())

	require.NoError(t, client.DeliverSummary(context.Background(), 5, session.Summary{
		Topic:  "world_war_two",
		Total:  3,
		Retest: session.RetestParams{Topic: "world_war_two"},
	}))

	sent := bot.Sent()
	require.Len(t, sent, 1)
	msg := sent[0].(tgbotapi.MessageConfig)
	assert.Empty(t, msg.ParseMode)
	assert.Contains(t, msg.Text, "Score: 0/3")
	_, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.True(t, ok, "buttons survive the fallback")
}
