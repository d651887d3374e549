package telegram

import (
	"context"
	"errors"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gokatarajesh/quizbot/internal/session"
)

type fakeBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	nextID   int
	sendErr  error
	// rejectMarkdown fails sends that ask for Markdown parsing.
	rejectMarkdown bool
	updates        chan tgbotapi.Update
	stopped        bool
}

func newFakeBot() *fakeBot {
	return &fakeBot{updates: make(chan tgbotapi.Update, 16)}
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return tgbotapi.Message{}, b.sendErr
	}
	if m, ok := c.(tgbotapi.MessageConfig); ok && b.rejectMarkdown && m.ParseMode != "" {
		return tgbotapi.Message{}, errors.New("Bad Request: can't parse entities")
	}
	b.sent = append(b.sent, c)
	b.nextID++
	msg := tgbotapi.Message{MessageID: b.nextID}
	if _, ok := c.(tgbotapi.SendPollConfig); ok {
		msg.Poll = &tgbotapi.Poll{ID: "poll-1"}
	}
	return msg, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return b.updates
}

func (b *fakeBot) StopReceivingUpdates() {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()
}

func (b *fakeBot) Sent() []tgbotapi.Chattable {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), b.sent...)
}

func (b *fakeBot) Requests() []tgbotapi.Chattable {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), b.requests...)
}

func (b *fakeBot) last() tgbotapi.Chattable {
	sent := b.Sent()
	if len(sent) == 0 {
		return nil
	}
	return sent[len(sent)-1]
}

type fakeSessions struct {
	mu       sync.Mutex
	started  []session.StartRequest
	answers  []session.AnswerEvent
	startErr error
	summary  *session.Summary
	stopErr  error
}

func (f *fakeSessions) StartSession(_ context.Context, req session.StartRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, req)
	return nil
}

func (f *fakeSessions) StopSession(context.Context, int64) (*session.Summary, error) {
	return f.summary, f.stopErr
}

func (f *fakeSessions) HandleAnswer(_ context.Context, ev session.AnswerEvent) {
	f.mu.Lock()
	f.answers = append(f.answers, ev)
	f.mu.Unlock()
}

type fakeCatalog struct {
	subjects []string
	topics   map[string][]string
}

func (c fakeCatalog) Subjects(context.Context) ([]string, error) { return c.subjects, nil }

func (c fakeCatalog) Topics(_ context.Context, subject string) ([]string, error) {
	topics, ok := c.topics[subject]
	if !ok {
		return nil, session.ErrNotFound
	}
	return topics, nil
}
