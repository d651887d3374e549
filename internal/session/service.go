package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizbot/internal/question"
)

// Loader produces a freshly shuffled question sequence for a bank.
type Loader interface {
	Load(ctx context.Context, id question.BankID) ([]question.Question, error)
}

// ServiceOptions configures the session service.
type ServiceOptions struct {
	// TransitionDelay is the pause between questions. Zero or negative
	// disables it; the configured default is 1s.
	TransitionDelay time.Duration
	Observer        Observer
	Now             func() time.Time
}

// Service owns every active session: it starts their dispatch loops,
// stops them on request and feeds them inbound answers.
type Service struct {
	loader     Loader
	transport  Transport
	registry   *Registry
	correlator *Correlator
	observer   Observer
	now        func() time.Time
	delay      time.Duration
	logger     zerolog.Logger

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

func NewService(loader Loader, transport Transport, opts ServiceOptions, logger zerolog.Logger) *Service {
	delay := opts.TransitionDelay
	if delay < 0 {
		delay = 0
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	logger = logger.With().Str("component", "session_service").Logger()
	return &Service{
		loader:     loader,
		transport:  transport,
		registry:   NewRegistry(),
		correlator: NewCorrelator(logger),
		observer:   observer,
		now:        now,
		delay:      delay,
		logger:     logger,
	}
}

// StartSession loads the bank and launches a dispatch loop for the user.
// A session the user already had is stopped without a summary.
func (s *Service) StartSession(ctx context.Context, req StartRequest) error {
	if req.Topic == "" {
		return ErrInvalidTopic
	}
	if req.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	questions, err := s.loader.Load(ctx, question.BankID{Subject: req.Subject, Topic: req.Topic})
	if err != nil {
		return fmt.Errorf("load bank: %w", err)
	}

	sess, err := New(req, questions, s.now())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sess.bind(cancel)

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		cancel()
		return ErrShuttingDown
	}
	s.wg.Add(1)
	prev := s.registry.Put(sess)
	s.mu.Unlock()

	if prev != nil {
		s.abandon(ctx, prev, ReasonReplaced)
	}

	s.observer.SessionStarted()
	s.logger.Info().
		Int64("user_id", req.UserID).
		Str("subject", req.Subject).
		Str("topic", req.Topic).
		Int("questions", sess.Total()).
		Dur("timeout", req.Timeout).
		Msg("session started")

	go s.run(loopCtx, sess)
	return nil
}

// StopSession ends the user's session. The summary is nil when no question
// had been shown yet.
func (s *Service) StopSession(ctx context.Context, userID int64) (*Summary, error) {
	sess, ok := s.registry.Take(userID)
	if !ok {
		return nil, ErrNoActiveSession
	}

	handle, shown, stopped := sess.stop()
	if !stopped {
		// the loop finished first and owns the summary
		return nil, ErrNoActiveSession
	}
	if handle != nil {
		s.correlator.forget(handle.ID)
		s.closeExchange(ctx, *handle)
	}
	s.observer.SessionEnded(ReasonStopped)

	s.logger.Info().
		Int64("user_id", userID).
		Str("topic", sess.Topic).
		Bool("shown", shown).
		Msg("session stopped")

	if !shown {
		return nil, nil
	}
	summary := Compile(sess, s.now())
	return &summary, nil
}

// HandleAnswer is the sink for inbound answer events.
func (s *Service) HandleAnswer(_ context.Context, ev AnswerEvent) {
	outcome, ok := s.correlator.Resolve(ev)
	if !ok {
		return
	}
	s.observer.AnswerRecorded(outcome)
}

func (s *Service) Active(userID int64) bool {
	_, ok := s.registry.Get(userID)
	return ok
}

func (s *Service) ActiveCount() int {
	return s.registry.Len()
}

// Shutdown stops every session and waits for the loops to exit or ctx to
// expire.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	for _, sess := range s.registry.Drain() {
		s.abandon(ctx, sess, ReasonShutdown)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// abandon stops a session that will not get a summary.
func (s *Service) abandon(ctx context.Context, sess *Session, reason string) {
	handle, _, ok := sess.stop()
	if !ok {
		return
	}
	if handle != nil {
		s.correlator.forget(handle.ID)
		s.closeExchange(ctx, *handle)
	}
	s.observer.SessionEnded(reason)
	s.logger.Info().
		Int64("user_id", sess.UserID).
		Str("session_id", sess.ID).
		Str("reason", reason).
		Msg("session abandoned")
}

func (s *Service) closeExchange(ctx context.Context, handle ExchangeHandle) {
	if err := s.transport.CloseExchange(context.WithoutCancel(ctx), handle); err != nil {
		s.logger.Warn().Err(err).Str("exchange_id", handle.ID).Msg("close exchange failed")
	}
}
