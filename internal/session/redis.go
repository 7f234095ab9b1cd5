package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sessions older than this are dropped; an abandoned flow restarts from the
// beginning.
const sessionTTL = 24 * time.Hour

// RedisStore keeps sessions and the authorized sets in redis, shared across
// concurrent handlers and across restarts.
type RedisStore struct {
	rdb *redis.Client
}

var (
	_ Store   = (*RedisStore)(nil)
	_ Members = (*RedisStore)(nil)
)

func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Close() error { return s.rdb.Close() }

func sessionKey(chatID int64) string {
	return "session:" + strconv.FormatInt(chatID, 10)
}

func (s *RedisStore) Get(ctx context.Context, chatID int64) (Session, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		// A corrupt session is unrecoverable; start over.
		return Session{}, nil
	}
	return sess, nil
}

func (s *RedisStore) Put(ctx context.Context, chatID int64, sess Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(chatID), raw, sessionTTL).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, chatID int64) error {
	if err := s.rdb.Del(ctx, sessionKey(chatID)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *RedisStore) Add(ctx context.Context, set string, chatID int64) error {
	if err := s.rdb.SAdd(ctx, set, chatID).Err(); err != nil {
		return fmt.Errorf("add to %s: %w", set, err)
	}
	return nil
}

func (s *RedisStore) Contains(ctx context.Context, set string, chatID int64) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, set, chatID).Result()
	if err != nil {
		return false, fmt.Errorf("check %s: %w", set, err)
	}
	return ok, nil
}
