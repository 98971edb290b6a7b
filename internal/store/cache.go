package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"interviewhub/backend/internal/domain"
)

// Cached wraps an AttemptStore with a Redis snapshot cache, so a
// reconnecting room's load-initial-state skips the database round trip.
// The cache is write-through and purely an optimization; every miss or
// Redis failure falls back to the inner store.
type Cached struct {
	inner AttemptStore
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCached(inner AttemptStore, rdb *redis.Client, ttl time.Duration) *Cached {
	return &Cached{inner: inner, rdb: rdb, ttl: ttl}
}

type cachedSnapshot struct {
	Code       string            `json:"code"`
	Language   string            `json:"language"`
	Whiteboard []json.RawMessage `json:"whiteboard"`
}

func cacheKey(key domain.CollabKey) string { return "attempt:" + key.String() }

func (c *Cached) LoadAttempt(ctx context.Context, key domain.CollabKey) (*domain.Attempt, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(key)).Bytes()
	if err == nil {
		var snap cachedSnapshot
		if err := json.Unmarshal(raw, &snap); err == nil {
			return &domain.Attempt{
				Key:             key,
				FinalCode:       snap.Code,
				FinalLanguage:   snap.Language,
				FinalWhiteboard: snap.Whiteboard,
			}, nil
		}
		log.Warn().Str("module", "store.cache").Str("key", key.String()).Msg("corrupt cache entry, dropping")
		c.rdb.Del(ctx, cacheKey(key))
	} else if err != redis.Nil {
		log.Warn().Err(err).Str("module", "store.cache").Msg("cache read failed")
	}

	a, err := c.inner.LoadAttempt(ctx, key)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, a.FinalCode, a.FinalLanguage, a.FinalWhiteboard)
	return a, nil
}

func (c *Cached) SaveCode(ctx context.Context, key domain.CollabKey, code, language string, ev domain.EditEvent) error {
	if err := c.inner.SaveCode(ctx, key, code, language, ev); err != nil {
		return err
	}
	c.refresh(ctx, key, func(s *cachedSnapshot) {
		s.Code = code
		s.Language = language
	})
	return nil
}

func (c *Cached) SaveWhiteboard(ctx context.Context, key domain.CollabKey, elements []json.RawMessage, ev domain.EditEvent) error {
	if err := c.inner.SaveWhiteboard(ctx, key, elements, ev); err != nil {
		return err
	}
	c.refresh(ctx, key, func(s *cachedSnapshot) {
		s.Whiteboard = elements
	})
	return nil
}

func (c *Cached) refresh(ctx context.Context, key domain.CollabKey, mut func(*cachedSnapshot)) {
	var snap cachedSnapshot
	if raw, err := c.rdb.Get(ctx, cacheKey(key)).Bytes(); err == nil {
		_ = json.Unmarshal(raw, &snap)
	}
	mut(&snap)
	if snap.Whiteboard == nil {
		snap.Whiteboard = []json.RawMessage{}
	}
	c.put(ctx, key, snap.Code, snap.Language, snap.Whiteboard)
}

func (c *Cached) put(ctx context.Context, key domain.CollabKey, code, language string, board []json.RawMessage) {
	raw, err := json.Marshal(cachedSnapshot{Code: code, Language: language, Whiteboard: board})
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(key), raw, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("module", "store.cache").Msg("cache write failed")
	}
}
