package session

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizbot/internal/question"
)

// run drives one session until it is exhausted, stopped or cancelled.
func (s *Service) run(ctx context.Context, sess *Session) {
	defer s.wg.Done()
	defer s.cancelLoop(sess)

	logger := s.logger.With().
		Str("session_id", sess.ID).
		Int64("user_id", sess.UserID).
		Str("topic", sess.Topic).
		Logger()

	if ctx.Err() == nil && sess.Active() {
		s.announce(ctx, sess, logger)
	}

	for {
		if ctx.Err() != nil || !sess.Active() {
			return
		}

		q, number, ok := sess.next()
		if !ok {
			s.finish(ctx, sess, logger)
			return
		}

		s.dispatch(ctx, sess, q, number, logger)

		if !sess.release() {
			return
		}
		if !sleep(ctx, s.delay) {
			return
		}
	}
}

// announce tells the user the quiz is starting. Failure is not fatal.
func (s *Service) announce(ctx context.Context, sess *Session, logger zerolog.Logger) {
	text := fmt.Sprintf("📘 %s quiz starting...\n%d questions, ⏱️ %d seconds per question!",
		sess.Topic, sess.Total(), int(sess.Timeout/time.Second))
	if err := s.transport.SendMessage(ctx, sess.ChatID, text); err != nil && ctx.Err() == nil {
		logger.Warn().Err(err).Msg("send start message failed")
	}
}

// dispatch renders one question and waits for an answer, the timeout or
// cancellation.
func (s *Service) dispatch(ctx context.Context, sess *Session, q question.Question, number int, logger zerolog.Logger) {
	handle, err := s.transport.CreateExchange(ctx, ExchangeRequest{
		ChatID:       sess.ChatID,
		Number:       number,
		Total:        sess.Total(),
		Prompt:       q.Prompt,
		Options:      q.Options,
		CorrectIndex: q.CorrectIndex,
		Timeout:      sess.Timeout,
	})
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn().Err(err).Int("number", number).Msg("create exchange failed, skipping question")
		}
		return
	}

	ex := sess.open(q, handle)
	if ex == nil {
		s.correlator.forget(handle.ID)
		s.closeExchange(ctx, handle)
		return
	}
	early := s.correlator.track(handle.ID, sess)
	defer s.correlator.forget(handle.ID)
	for _, ev := range early {
		s.HandleAnswer(ctx, ev)
	}

	timer := time.NewTimer(sess.Timeout)
	defer timer.Stop()

	select {
	case <-ex.signal.Done():
	case <-timer.C:
		if sess.expire(handle.ID) {
			s.observer.AnswerRecorded(OutcomeMissed)
			logger.Debug().Int("number", number).Msg("question timed out")
		}
	case <-ctx.Done():
	}
}

func (s *Service) finish(ctx context.Context, sess *Session, logger zerolog.Logger) {
	if !sess.complete() {
		return
	}
	summary := Compile(sess, s.now())
	s.observer.SessionEnded(ReasonCompleted)

	if err := s.transport.DeliverSummary(ctx, sess.ChatID, summary); err != nil {
		logger.Warn().Err(err).Msg("deliver summary failed")
	}
	s.registry.Remove(sess.UserID, sess)

	logger.Info().
		Int("correct", summary.Correct).
		Int("wrong", summary.Wrong).
		Int("missed", summary.Missed).
		Msg("session completed")
}

func (s *Service) cancelLoop(sess *Session) {
	sess.mu.Lock()
	cancel := sess.cancel
	sess.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
