package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cryoner-gateway/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// sessionKeyPrefix matches the key shape the web checkout has always used.
const sessionKeyPrefix = "cryoner_payment_session_"

const sweepScanCount = 100

// SessionStore implements ports.SessionRepository using Redis. Entries
// carry their own expires_at alongside the Redis TTL so a session read
// close to the boundary is still checked against wall-clock time, and the
// sweeper can clear entries whose TTL was lost.
type SessionStore struct {
	client *goredis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewSessionStore creates a Redis-backed session store with the standard
// 30 minute session lifetime.
func NewSessionStore(client *goredis.Client, log zerolog.Logger) *SessionStore {
	return &SessionStore{
		client: client,
		ttl:    domain.SessionTTL,
		log:    log,
	}
}

// Create stores the payload under a fresh session ID.
func (s *SessionStore) Create(ctx context.Context, payload json.RawMessage) (*domain.Session, error) {
	now := time.Now()
	sess := &domain.Session{
		ID:        domain.NewSessionID(),
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshaling session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKeyPrefix+sess.ID, raw, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("redis session set: %w", err)
	}
	return sess, nil
}

// Get returns the session, or (nil, nil) if absent, corrupt or expired.
// Corrupt and expired entries are removed on read.
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis session get: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		s.log.Warn().Str("session_id", id).Err(err).Msg("dropping corrupt session entry")
		s.client.Del(ctx, sessionKeyPrefix+id)
		return nil, nil
	}

	if sess.IsExpired(time.Now()) {
		s.client.Del(ctx, sessionKeyPrefix+id)
		return nil, nil
	}
	return &sess, nil
}

// Delete removes the session. Deleting an absent session is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis session del: %w", err)
	}
	return nil
}

// SweepExpired scans all session keys and removes expired and corrupt
// entries, returning the number removed.
func (s *SessionStore) SweepExpired(ctx context.Context) (int, error) {
	var removed int
	now := time.Now()

	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", sweepScanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		raw, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			if err == goredis.Nil {
				continue
			}
			return removed, fmt.Errorf("redis session sweep get: %w", err)
		}

		var sess domain.Session
		if err := json.Unmarshal(raw, &sess); err != nil || sess.IsExpired(now) {
			if delErr := s.client.Del(ctx, key).Err(); delErr != nil {
				return removed, fmt.Errorf("redis session sweep del: %w", delErr)
			}
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis session sweep scan: %w", err)
	}

	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("session sweep complete")
	}
	return removed, nil
}
