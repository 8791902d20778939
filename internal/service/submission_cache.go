package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// SubmissionCache remembers which issue a submission produced, so a
// retried create-contribution does not open a second issue.
type SubmissionCache interface {
	Lookup(ctx context.Context, key string) (int, bool, error)
	Remember(ctx context.Context, key string, issueNumber int) error
}

// SubmissionKey derives the cache key of a submission from the entry id
// chosen by the client and its session: the first 16 bytes of a sha256,
// hex encoded. It is empty when the client sent no entry id.
func SubmissionKey(entryID, sessionID string) string {
	entryID = strings.TrimSpace(entryID)
	sessionID = strings.TrimSpace(sessionID)
	if entryID == "" || sessionID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(entryID + "\x00" + sessionID))
	return hex.EncodeToString(sum[:16])
}

// RedisSubmissionCache stores submission keys in Redis with a TTL.
type RedisSubmissionCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisSubmissionCache creates a cache on client.
func NewRedisSubmissionCache(client *redis.Client, ttl time.Duration) *RedisSubmissionCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSubmissionCache{client: client, ttl: ttl, prefix: "community:submission:"}
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
		MaxRetries:   3,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Lookup returns the issue number stored for key.
func (c *RedisSubmissionCache) Lookup(ctx context.Context, key string) (int, bool, error) {
	value, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	number, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("submission cache value %q: %w", value, err)
	}
	return number, true, nil
}

// Remember stores the issue number for key until the TTL expires.
func (c *RedisSubmissionCache) Remember(ctx context.Context, key string, issueNumber int) error {
	return c.client.Set(ctx, c.prefix+key, strconv.Itoa(issueNumber), c.ttl).Err()
}
