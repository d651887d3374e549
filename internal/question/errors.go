package question

import "errors"

var (
	// ErrNotFound is returned when a bank identifier does not resolve to a bank.
	ErrNotFound = errors.New("question bank not found")
	// ErrEmpty is returned when a bank holds no valid questions.
	ErrEmpty = errors.New("question bank has no valid questions")
)
