package question

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Loader turns a bank into a freshly shuffled question sequence. Every call
// produces an independent permutation of both questions and options.
type Loader struct {
	source Source
	logger zerolog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// Rand overrides the random source, mainly for deterministic tests.
	Rand *rand.Rand
}

func NewLoader(source Source, logger zerolog.Logger, opts LoaderOptions) *Loader {
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Loader{
		source: source,
		logger: logger.With().Str("component", "bank_loader").Logger(),
		rnd:    rnd,
	}
}

// Load reads a bank, shuffles the full row set, and keeps every row that
// normalizes into a playable question. It fails with ErrNotFound when the
// bank does not exist and ErrEmpty when no row survives.
func (l *Loader) Load(ctx context.Context, id BankID) ([]Question, error) {
	records, err := l.source.Records(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load bank %s: %w", id, err)
	}

	rows := make([]Record, len(records))
	copy(rows, records)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.rnd.Shuffle(len(rows), func(i, j int) {
		rows[i], rows[j] = rows[j], rows[i]
	})

	questions := make([]Question, 0, len(rows))
	for _, rec := range rows {
		rec.Options = append([]string(nil), rec.Options...)
		q, ok := Normalize(rec, l.rnd.Shuffle)
		if !ok {
			continue
		}
		questions = append(questions, q)
	}

	if dropped := len(rows) - len(questions); dropped > 0 {
		l.logger.Debug().
			Str("bank", id.String()).
			Int("dropped", dropped).
			Msg("skipped malformed rows")
	}
	if len(questions) == 0 {
		return nil, ErrEmpty
	}
	return questions, nil
}

// Subjects exposes the source catalog for menus.
func (l *Loader) Subjects(ctx context.Context) ([]string, error) {
	return l.source.Subjects(ctx)
}

// Topics exposes the source catalog for menus.
func (l *Loader) Topics(ctx context.Context, subject string) ([]string, error) {
	return l.source.Topics(ctx, subject)
}
