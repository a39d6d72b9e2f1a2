package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "wabank:session:"

// redisSession is the externalized session shape.
type redisSession struct {
	State State `json:"state"`
	Data  Data  `json:"data"`
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a Redis-backed Store. Sessions expire after ttl of
// inactivity so abandoned conversations do not accumulate.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &redisStore{client: client, ttl: ttl}
}

func (r *redisStore) GetOrCreate(ctx context.Context, key Key) (*Session, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		s := &Session{State: StateNone, Data: make(Data)}
		if err := r.Save(ctx, key, s); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var stored redisSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	if stored.Data == nil {
		stored.Data = make(Data)
	}
	return &Session{State: stored.State, Data: stored.Data}, nil
}

func (r *redisStore) Save(ctx context.Context, key Key, s *Session) error {
	raw, err := json.Marshal(redisSession{State: s.State, Data: s.Data})
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key.String(), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("session set: %w", err)
	}
	return nil
}

func (r *redisStore) Delete(ctx context.Context, key Key) error {
	if err := r.client.Del(ctx, redisKeyPrefix+key.String()).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

func (r *redisStore) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("session clear: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("session clear: %w", err)
	}
	return nil
}
