package question

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Warmer walks the bank catalog on an interval and refreshes the cached
// copy of every bank so session starts rarely touch the disk.
type Warmer struct {
	source   *CachedSource
	logger   zerolog.Logger
	interval time.Duration
	timeout  time.Duration
}

func NewWarmer(source *CachedSource, interval time.Duration, logger zerolog.Logger) *Warmer {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Warmer{
		source:   source,
		logger:   logger.With().Str("component", "bank_warmer").Logger(),
		interval: interval,
		timeout:  10 * time.Second,
	}
}

// Run blocks until context cancellation.
func (w *Warmer) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Warmer) tick(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, w.timeout)
	defer cancel()

	banks, err := Catalog(ctx, w.source)
	if err != nil {
		w.logger.Warn().Err(err).Msg("list banks failed")
		return
	}

	warmed := 0
	for _, id := range banks {
		if err := w.source.Refresh(ctx, id); err != nil {
			w.logger.Warn().Err(err).Str("bank", id.String()).Msg("warm bank failed")
			continue
		}
		warmed++
	}
	w.logger.Debug().Int("banks", warmed).Msg("bank cache warmed")
}

// Catalog enumerates every bank a source exposes: root topics first, then
// each subject's topics.
func Catalog(ctx context.Context, source Lister) ([]BankID, error) {
	var banks []BankID

	roots, err := source.Topics(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, topic := range roots {
		banks = append(banks, BankID{Topic: topic})
	}

	subjects, err := source.Subjects(ctx)
	if err != nil {
		return nil, err
	}
	for _, subject := range subjects {
		topics, err := source.Topics(ctx, subject)
		if err != nil {
			return nil, err
		}
		for _, topic := range topics {
			banks = append(banks, BankID{Subject: subject, Topic: topic})
		}
	}
	return banks, nil
}
