package question

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// CachedSource puts a RecordCache in front of a Source. Concurrent misses for
// the same bank collapse into a single read of the underlying source.
type CachedSource struct {
	source Source
	cache  RecordCache
	sf     singleflight.Group
	logger zerolog.Logger
}

var _ Source = (*CachedSource)(nil)

func NewCachedSource(source Source, cache RecordCache, logger zerolog.Logger) *CachedSource {
	return &CachedSource{
		source: source,
		cache:  cache,
		logger: logger.With().Str("component", "bank_cache").Logger(),
	}
}

func (c *CachedSource) Records(ctx context.Context, id BankID) ([]Record, error) {
	if cached, err := c.cache.Get(ctx, id); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		c.logger.Warn().Err(err).Str("bank", id.String()).Msg("cache read failed")
	}

	result, err, _ := c.sf.Do(id.String(), func() (interface{}, error) {
		records, err := c.source.Records(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(ctx, id, records); err != nil {
			c.logger.Warn().Err(err).Str("bank", id.String()).Msg("cache write failed")
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Record), nil
}

// Refresh re-reads a bank from the underlying source and overwrites the
// cached copy.
func (c *CachedSource) Refresh(ctx context.Context, id BankID) error {
	records, err := c.source.Records(ctx, id)
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, id, records)
}

func (c *CachedSource) Subjects(ctx context.Context) ([]string, error) {
	return c.source.Subjects(ctx)
}

func (c *CachedSource) Topics(ctx context.Context, subject string) ([]string, error) {
	return c.source.Topics(ctx, subject)
}
