// Package rediscache caches built reports in Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

// scanCount is the number of keys asked for per SCAN call when invalidating.
const scanCount = 100

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

type reportCache struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

var _ grade.ReportCache = (*reportCache)(nil) // interface compliance check

// NewClient connects to the Redis server described by conf and pings it.
func NewClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

// NewReportCache returns a grade.ReportCache storing JSON encoded reports for ttl.
// keyPrefix namespaces the keys (e.g. per app).
func NewReportCache(client redis.UniversalClient, keyPrefix string, ttl time.Duration) grade.ReportCache {
	return &reportCache{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (c *reportCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "getting report")
	}
	if err = json.Unmarshal(data, dest); err != nil {
		return false, errors.Wrap(err, "decoding report")
	}
	return true, nil
}

func (c *reportCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "encoding report")
	}
	return errors.Wrap(c.client.Set(ctx, c.keyPrefix+key, data, c.ttl).Err(), "setting report")
}

// Invalidate deletes the keys starting with prefix, SCANning instead of blocking on KEYS.
func (c *reportCache) Invalidate(ctx context.Context, prefix string) error {
	match := globReplacer.Replace(c.keyPrefix+prefix) + "*"

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return errors.Wrap(err, "scanning reports")
		}
		if len(keys) > 0 {
			if err = c.client.Del(ctx, keys...).Err(); err != nil {
				return errors.Wrap(err, "deleting reports")
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
