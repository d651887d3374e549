package question

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 10 * time.Minute

// RecordCache stores raw bank records so repeated session starts skip the
// disk. Get returns (nil, nil) on a miss.
type RecordCache interface {
	Get(ctx context.Context, id BankID) ([]Record, error)
	Set(ctx context.Context, id BankID, records []Record) error
}

// Cache is the Redis-backed RecordCache.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ RecordCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(id BankID) string {
	subject := id.Subject
	if subject == "" {
		subject = "@root"
	}
	return strings.Join([]string{"question", "bank", subject, id.Topic}, ":")
}

func (c *Cache) Get(ctx context.Context, id BankID) ([]Record, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Cache) Set(ctx context.Context, id BankID, records []Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(id), data, c.ttl).Err()
}
