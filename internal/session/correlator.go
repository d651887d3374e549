package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultPendingTTL = 10 * time.Second
	maxPending        = 1024
	maxPendingPerID   = 4
)

type pendingAnswers struct {
	events  []AnswerEvent
	expires time.Time
}

// Correlator routes answer events to the session owning the exchange.
// Answers for exchanges not yet tracked are held briefly: a transport may
// deliver the question, and the user may answer it, before the loop has
// registered the exchange id.
type Correlator struct {
	mu        sync.Mutex
	exchanges map[string]*Session
	pending   map[string]*pendingAnswers
	ttl       time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

func NewCorrelator(logger zerolog.Logger) *Correlator {
	return &Correlator{
		exchanges: make(map[string]*Session),
		pending:   make(map[string]*pendingAnswers),
		ttl:       defaultPendingTTL,
		now:       time.Now,
		logger:    logger.With().Str("component", "answer_correlator").Logger(),
	}
}

// track registers an open exchange and returns any answers that arrived
// for it early. The caller replays them through Resolve.
func (c *Correlator) track(exchangeID string, s *Session) []AnswerEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.exchanges[exchangeID] = s
	p, ok := c.pending[exchangeID]
	if !ok {
		return nil
	}
	delete(c.pending, exchangeID)
	if c.now().After(p.expires) {
		return nil
	}
	return p.events
}

func (c *Correlator) forget(exchangeID string) {
	c.mu.Lock()
	delete(c.exchanges, exchangeID)
	delete(c.pending, exchangeID)
	c.mu.Unlock()
}

// Resolve scores ev against its exchange. Stale, duplicate and foreign
// events are ignored and report false; events for unknown exchanges are
// buffered until the exchange is tracked or the hold expires.
func (c *Correlator) Resolve(ev AnswerEvent) (Outcome, bool) {
	c.mu.Lock()
	s, ok := c.exchanges[ev.ExchangeID]
	if !ok {
		c.hold(ev)
		c.mu.Unlock()
		return "", false
	}
	c.mu.Unlock()

	if s.UserID != ev.UserID {
		c.logger.Debug().
			Str("exchange_id", ev.ExchangeID).
			Int64("user_id", ev.UserID).
			Msg("ignoring answer from another user")
		return "", false
	}

	outcome, ok := s.resolve(ev.ExchangeID, ev.Selected)
	if !ok {
		return "", false
	}
	c.forget(ev.ExchangeID)
	return outcome, true
}

// hold buffers an early answer. Callers hold c.mu.
func (c *Correlator) hold(ev AnswerEvent) {
	now := c.now()
	if p, ok := c.pending[ev.ExchangeID]; ok {
		if len(p.events) < maxPendingPerID {
			p.events = append(p.events, ev)
		}
		return
	}

	if len(c.pending) >= maxPending {
		for id, p := range c.pending {
			if now.After(p.expires) {
				delete(c.pending, id)
			}
		}
		if len(c.pending) >= maxPending {
			c.logger.Warn().Str("exchange_id", ev.ExchangeID).Msg("pending answer buffer full, dropping answer")
			return
		}
	}
	c.pending[ev.ExchangeID] = &pendingAnswers{
		events:  []AnswerEvent{ev},
		expires: now.Add(c.ttl),
	}
}

func (c *Correlator) tracked(exchangeID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.exchanges[exchangeID]
	return ok
}

func (c *Correlator) held() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
