package session

import (
	"context"
	"sync"
	"time"
)

// State is the terminal-or-not status of a Session.
type State string

const (
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateStopped   State = "stopped"
)

// Outcome is how a single question was scored.
type Outcome string

const (
	OutcomeCorrect Outcome = "correct"
	OutcomeWrong   Outcome = "wrong"
	OutcomeMissed  Outcome = "missed"
)

// End reasons reported to the Observer.
const (
	ReasonCompleted = "completed"
	ReasonStopped   = "stopped"
	ReasonReplaced  = "replaced"
	ReasonShutdown  = "shutdown"
)

// NoSelection marks an answer event that carried no chosen option.
const NoSelection = -1

// StartRequest carries the parameters of a new session.
type StartRequest struct {
	UserID  int64
	ChatID  int64
	Subject string
	Topic   string
	Timeout time.Duration
}

// AnswerEvent is an inbound answer from the transport.
type AnswerEvent struct {
	ExchangeID string
	UserID     int64
	Selected   int
}

// ExchangeHandle identifies a question rendered by the transport.
type ExchangeHandle struct {
	ID        string
	ChatID    int64
	MessageID int
}

// ExchangeRequest asks the transport to render one question.
type ExchangeRequest struct {
	ChatID       int64
	Number       int
	Total        int
	Prompt       string
	Options      []string
	CorrectIndex int
	Timeout      time.Duration
}

// Transport is the chat boundary the engine talks to.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	CreateExchange(ctx context.Context, req ExchangeRequest) (ExchangeHandle, error)
	CloseExchange(ctx context.Context, handle ExchangeHandle) error
	DeliverSummary(ctx context.Context, chatID int64, summary Summary) error
}

// Observer receives lifecycle events, typically for metrics.
type Observer interface {
	SessionStarted()
	SessionEnded(reason string)
	AnswerRecorded(outcome Outcome)
}

type nopObserver struct{}

func (nopObserver) SessionStarted()        {}
func (nopObserver) SessionEnded(string)    {}
func (nopObserver) AnswerRecorded(Outcome) {}

// Signal is a one-shot resolution signal. Only the first Resolve call has
// an effect; later calls report false.
type Signal struct {
	once sync.Once
	done chan struct{}
}

func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

func (s *Signal) Resolve() bool {
	fired := false
	s.once.Do(func() {
		close(s.done)
		fired = true
	})
	return fired
}

func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Exchange is the outstanding question of a session.
type Exchange struct {
	Handle       ExchangeHandle
	prompt       string
	correctIndex int
	signal       *Signal
}
