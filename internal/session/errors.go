package session

import (
	"errors"

	"github.com/gokatarajesh/quizbot/internal/question"
)

var (
	// ErrNotFound is returned when the requested bank does not exist.
	ErrNotFound = question.ErrNotFound
	// ErrEmpty is returned when a bank has no playable questions.
	ErrEmpty = question.ErrEmpty

	ErrNoActiveSession = errors.New("no active session")
	ErrInvalidTimeout  = errors.New("per-question timeout must be positive")
	ErrInvalidTopic    = errors.New("topic is required")
	ErrShuttingDown    = errors.New("session service is shutting down")
)
