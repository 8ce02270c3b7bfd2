// Package redisstore keeps auth info in Redis, for clients that share a
// login across processes.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stitchkit/stitch.go/internal/codec"
	"github.com/stitchkit/stitch.go/pkg/constants"
	"github.com/stitchkit/stitch.go/pkg/store"
)

var ErrRedisUnavailable = errors.New("redis unavailable")

type Store struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
	codec  codec.Codec
}

var _ store.Store = (*Store)(nil)

// New returns a Store writing keys as "<prefix>:auth:<appID>". A zero ttl
// keeps entries until cleared.
func New(rdb redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "stitch"
	}
	return &Store{rdb: rdb, prefix: prefix, ttl: ttl, codec: codec.JSON{}}
}

func (s *Store) key(appID string) string {
	return s.prefix + ":auth:" + appID
}

func (s *Store) Load(ctx context.Context, appID string) (*store.AuthInfo, error) {
	data, err := s.rdb.Get(ctx, s.key(appID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, constants.ErrAuthInfoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var info store.AuthInfo
	if err := s.codec.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to decode auth info: %w", err)
	}
	return &info, nil
}

func (s *Store) Save(ctx context.Context, appID string, info *store.AuthInfo) error {
	data, err := s.codec.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode auth info: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(appID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, appID string) error {
	if err := s.rdb.Del(ctx, s.key(appID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
