package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/recipe-importer/pkg/utils"
)

const embeddedPrefix = "embedded:"

// RedisStore caches which recipes already have embeddings.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) *RedisStore {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisStore{client: rdb}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func embeddedKey(recipeID string) string {
	return fmt.Sprintf("%s%s", embeddedPrefix, utils.HashKey(recipeID))
}

// MarkEmbedded sets a marker with a TTL so the recipe is skipped on later resyncs.
func (s *RedisStore) MarkEmbedded(ctx context.Context, ids []string, ttl time.Duration) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.SetEx(ctx, embeddedKey(id), "1", ttl)
		}
		return nil
	})
	return err
}

// Unmarked returns the ids, in input order, without an embedded marker.
func (s *RedisStore) Unmarked(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cmds := make([]*redis.IntCmd, len(ids))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.Exists(ctx, embeddedKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []string
	for i, cmd := range cmds {
		if cmd.Val() == 0 {
			out = append(out, ids[i])
		}
	}
	return out, nil
}
