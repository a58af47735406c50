package session

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"medichat-backend/pkg"
)

const keyPrefix = "chat:session:"

// RedisStore is the durable session store variant. Each session is one JSON
// value under chat:session:<id>; Create relies on SETNX so exactly one racing
// creator wins. No TTL is set, matching the in-memory lifetime semantics.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client. The caller owns the connection.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*pkg.Session, bool, error) {
	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get session")
	}
	var sess pkg.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, false, errors.Wrap(err, "decode session record")
	}
	return &sess, true, nil
}

func (s *RedisStore) Create(ctx context.Context, sess *pkg.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "encode session record")
	}
	ok, err := s.client.SetNX(ctx, keyPrefix+sess.ID, data, 0).Result()
	if err != nil {
		return errors.Wrap(err, "redis create session")
	}
	if !ok {
		return ErrDuplicateSession
	}
	return nil
}

func (s *RedisStore) Put(ctx context.Context, sess *pkg.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "encode session record")
	}
	if err := s.client.Set(ctx, keyPrefix+sess.ID, data, 0).Err(); err != nil {
		return errors.Wrap(err, "redis put session")
	}
	return nil
}

func (s *RedisStore) History(ctx context.Context, id string) ([]pkg.Turn, error) {
	sess, ok, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownSession
	}
	return sess.Turns, nil
}
