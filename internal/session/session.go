package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/quizbot/internal/question"
)

// Session is one user's run through a question bank. All fields behind mu
// are mutated only by the session's dispatch loop and the correlator.
type Session struct {
	ID      string
	UserID  int64
	ChatID  int64
	Subject string
	Topic   string
	Timeout time.Duration

	mu          sync.Mutex
	pending     []question.Question
	total       int
	correct     []string
	wrong       []string
	missed      []string
	outstanding *Exchange
	active      *ExchangeHandle
	startedAt   time.Time
	shown       bool
	state       State
	cancel      context.CancelFunc
}

// New creates an active session holding questions in presentation order.
func New(req StartRequest, questions []question.Question, startedAt time.Time) (*Session, error) {
	if req.Topic == "" {
		return nil, ErrInvalidTopic
	}
	if req.Timeout <= 0 {
		return nil, ErrInvalidTimeout
	}
	if len(questions) == 0 {
		return nil, ErrEmpty
	}

	pending := make([]question.Question, len(questions))
	copy(pending, questions)

	return &Session{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		ChatID:    req.ChatID,
		Subject:   req.Subject,
		Topic:     req.Topic,
		Timeout:   req.Timeout,
		pending:   pending,
		total:     len(pending),
		startedAt: startedAt,
		state:     StateActive,
	}, nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Active() bool {
	return s.State() == StateActive
}

// Total is the number of questions the session started with.
func (s *Session) Total() int {
	return s.total
}

func (s *Session) bind(cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}

// next pops the front question. number is its 1-based ordinal.
func (s *Session) next() (q question.Question, number int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive || len(s.pending) == 0 {
		return question.Question{}, 0, false
	}
	q = s.pending[0]
	s.pending = s.pending[1:]
	return q, s.total - len(s.pending), true
}

// open records a freshly rendered exchange. It returns nil when the session
// stopped while the transport was rendering.
func (s *Session) open(q question.Question, handle ExchangeHandle) *Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return nil
	}
	ex := &Exchange{
		Handle:       handle,
		prompt:       q.Prompt,
		correctIndex: q.CorrectIndex,
		signal:       NewSignal(),
	}
	s.outstanding = ex
	h := handle
	s.active = &h
	s.shown = true
	return ex
}

// resolve scores the outstanding exchange exactly once.
func (s *Session) resolve(exchangeID string, selected int) (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex := s.outstanding
	if s.state != StateActive || ex == nil || ex.Handle.ID != exchangeID {
		return "", false
	}
	if !ex.signal.Resolve() {
		return "", false
	}
	s.outstanding = nil

	if selected == ex.correctIndex {
		s.correct = append(s.correct, ex.prompt)
		return OutcomeCorrect, true
	}
	s.wrong = append(s.wrong, ex.prompt)
	return OutcomeWrong, true
}

// expire records a miss if the exchange is still unanswered.
func (s *Session) expire(exchangeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex := s.outstanding
	if s.state != StateActive || ex == nil || ex.Handle.ID != exchangeID {
		return false
	}
	if !ex.signal.Resolve() {
		return false
	}
	s.outstanding = nil
	s.missed = append(s.missed, ex.prompt)
	return true
}

// release clears the displayed exchange after the wait. It reports whether
// the loop may continue.
func (s *Session) release() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = nil
	s.outstanding = nil
	return s.state == StateActive
}

// stop marks the session stopped and wakes its loop. handle is the exchange
// on screen, if any. ok is false when the session had already ended.
func (s *Session) stop() (handle *ExchangeHandle, shown bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return nil, s.shown, false
	}
	s.state = StateStopped
	handle = s.active
	s.active = nil
	if s.outstanding != nil {
		s.outstanding.signal.Resolve()
		s.outstanding = nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	return handle, s.shown, true
}

// complete moves an exhausted session to its terminal state. It fails if
// the session was stopped first.
func (s *Session) complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return false
	}
	s.state = StateCompleted
	return true
}
