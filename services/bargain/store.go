package bargain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"faredown/models"

	"github.com/go-redis/redis/v8"
)

// SessionStore persists bargain sessions between requests. Sessions expire
// on their own; an expired session simply reads back as missing.
type SessionStore interface {
	Save(ctx context.Context, session *models.BargainSession) error
	Get(ctx context.Context, sessionID string) (*models.BargainSession, error)
	Delete(ctx context.Context, sessionID string) error
}

// HoldStore persists price holds created after a successful negotiation.
type HoldStore interface {
	Save(ctx context.Context, hold *models.PriceHold) error
	Get(ctx context.Context, token string) (*models.PriceHold, error)
}

const (
	sessionKeyPrefix = "bargain:session:"
	holdKeyPrefix    = "bargain:hold:"
)

// RedisSessionStore keeps sessions as JSON blobs with a TTL.
type RedisSessionStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{Client: client, TTL: ttl}
}

func (s *RedisSessionStore) Save(ctx context.Context, session *models.BargainSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal bargain session: %w", err)
	}
	if err := s.Client.Set(ctx, sessionKeyPrefix+session.SessionID, data, s.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store bargain session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*models.BargainSession, error) {
	data, err := s.Client.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load bargain session: %w", err)
	}
	var session models.BargainSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to parse bargain session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.Client.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to delete bargain session: %w", err)
	}
	return nil
}

// RedisHoldStore keeps price holds as JSON blobs that expire with the hold.
type RedisHoldStore struct {
	Client *redis.Client
}

func NewRedisHoldStore(client *redis.Client) *RedisHoldStore {
	return &RedisHoldStore{Client: client}
}

func (s *RedisHoldStore) Save(ctx context.Context, hold *models.PriceHold) error {
	data, err := json.Marshal(hold)
	if err != nil {
		return fmt.Errorf("failed to marshal price hold: %w", err)
	}
	ttl := time.Until(hold.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("price hold already expired")
	}
	if err := s.Client.Set(ctx, holdKeyPrefix+hold.HoldToken, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store price hold: %w", err)
	}
	return nil
}

func (s *RedisHoldStore) Get(ctx context.Context, token string) (*models.PriceHold, error) {
	data, err := s.Client.Get(ctx, holdKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load price hold: %w", err)
	}
	var hold models.PriceHold
	if err := json.Unmarshal([]byte(data), &hold); err != nil {
		return nil, fmt.Errorf("failed to parse price hold: %w", err)
	}
	return &hold, nil
}
