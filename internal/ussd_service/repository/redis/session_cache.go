// Package redis provides a read-through cache in front of the Postgres
// session repository. The cache holds the hot per-dialogue state keyed by
// the aggregator session identifier, so continuation requests within one
// USSD dialogue avoid a database round trip. Postgres stays the source of
// truth; cache failures degrade to the inner repository.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/sahelcom/ussd-gateway/internal/ussd_service/domain"
)

const defaultKeyPrefix = "ussd:session:"

type SessionCache struct {
	inner  domain.SessionRepository
	client *backend.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

type Option func(*SessionCache)

// WithPrefix overrides the cache key prefix.
func WithPrefix(prefix string) Option {
	return func(c *SessionCache) {
		c.prefix = prefix
	}
}

// NewSessionCache wraps inner with a Redis cache. Entries expire after ttl;
// a ttl of 0 keeps entries until they are invalidated by a write.
func NewSessionCache(inner domain.SessionRepository, client *backend.Client, ttl time.Duration, logger *slog.Logger, opts ...Option) *SessionCache {
	cache := &SessionCache{
		inner:  inner,
		client: client,
		prefix: defaultKeyPrefix,
		ttl:    ttl,
		logger: logger.With("component", "session_cache"),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

func (c *SessionCache) key(sessionID string) string {
	return c.prefix + sessionID
}

func (c *SessionCache) GetBySessionID(ctx context.Context, sessionID string) (*domain.Session, error) {
	val, err := c.client.Get(ctx, c.key(sessionID)).Result()
	if err == nil {
		var session domain.Session
		if err := json.Unmarshal([]byte(val), &session); err == nil {
			return &session, nil
		}
		// Corrupt entry: drop it and fall through to the store.
		c.client.Del(ctx, c.key(sessionID))
	} else if !errors.Is(err, backend.Nil) {
		c.logger.WarnContext(ctx, "Redis read failed, falling back to store", "session_id", sessionID, "error", err)
	}

	session, err := c.inner.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session != nil {
		c.store(ctx, session)
	}
	return session, nil
}

func (c *SessionCache) Create(ctx context.Context, session *domain.Session) error {
	if err := c.inner.Create(ctx, session); err != nil {
		return err
	}
	c.store(ctx, session)
	return nil
}

func (c *SessionCache) TouchActivity(ctx context.Context, session *domain.Session, at time.Time) error {
	if err := c.inner.TouchActivity(ctx, session, at); err != nil {
		return err
	}
	c.store(ctx, session)
	return nil
}

func (c *SessionCache) SaveProgress(ctx context.Context, session *domain.Session) error {
	if err := c.inner.SaveProgress(ctx, session); err != nil {
		return err
	}
	c.store(ctx, session)
	return nil
}

func (c *SessionCache) Close(ctx context.Context, session *domain.Session) error {
	if err := c.inner.Close(ctx, session); err != nil {
		return err
	}
	// Ended dialogues are never resumed; evict rather than refresh.
	if err := c.client.Del(ctx, c.key(session.SessionID)).Err(); err != nil {
		c.logger.WarnContext(ctx, "Redis eviction failed", "session_id", session.SessionID, "error", err)
	}
	return nil
}

func (c *SessionCache) ListActive(ctx context.Context) ([]domain.Session, error) {
	return c.inner.ListActive(ctx)
}

func (c *SessionCache) CountSessions(ctx context.Context) (int64, int64, error) {
	return c.inner.CountSessions(ctx)
}

// store caches a session snapshot, best effort.
func (c *SessionCache) store(ctx context.Context, session *domain.Session) {
	data, err := json.Marshal(session)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to marshal session for cache", "session_id", session.SessionID, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.key(session.SessionID), data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "Redis write failed", "session_id", session.SessionID, "error", err)
	}
}
