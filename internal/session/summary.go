package session

import "time"

// RetestParams re-enters session creation with the same bank.
type RetestParams struct {
	Subject string
	Topic   string
}

// Summary is the immutable result of a finished or stopped session.
type Summary struct {
	Subject        string
	Topic          string
	Total          int
	Correct        int
	Wrong          int
	Missed         int
	NotAttended    int
	Elapsed        time.Duration
	CorrectPrompts []string
	WrongPrompts   []string
	MissedPrompts  []string
	Stopped        bool
	Retest         RetestParams
}

// Compile reduces a session to its summary without mutating it.
func Compile(s *Session, now time.Time) Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	correct := len(s.correct)
	wrong := len(s.wrong)
	missed := len(s.missed)

	notAttended := s.total - (correct + wrong + missed)
	if notAttended < 0 {
		notAttended = 0
	}

	elapsed := now.Sub(s.startedAt).Truncate(time.Second)
	if elapsed < 0 {
		elapsed = 0
	}

	return Summary{
		Subject:        s.Subject,
		Topic:          s.Topic,
		Total:          s.total,
		Correct:        correct,
		Wrong:          wrong,
		Missed:         missed,
		NotAttended:    notAttended,
		Elapsed:        elapsed,
		CorrectPrompts: append([]string(nil), s.correct...),
		WrongPrompts:   append([]string(nil), s.wrong...),
		MissedPrompts:  append([]string(nil), s.missed...),
		Stopped:        s.state == StateStopped,
		Retest:         RetestParams{Subject: s.Subject, Topic: s.Topic},
	}
}
