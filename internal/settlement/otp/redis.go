package otp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"medrefBack/internal/models"
)

// RedisStore keeps sessions in Redis; expiry rides on the key TTL, so the
// periodic sweep has nothing to do here.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "otp:session:"}
}

func (s *RedisStore) Save(ctx context.Context, key string, session models.OTPSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.prefix+key, payload, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (models.OTPSession, error) {
	payload, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.OTPSession{}, models.ErrOTPNotFound
	}
	if err != nil {
		return models.OTPSession{}, err
	}
	var session models.OTPSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return models.OTPSession{}, err
	}
	return session, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	removed, err := s.rdb.Del(ctx, s.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
