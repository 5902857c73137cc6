package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

const DefaultRedisKey = "dj:guild_configs"

// RedisStore guarda el snapshot completo en una sola key.
type RedisStore struct {
	rdb *redis.Client
	key string
	log *zap.Logger
}

func NewRedisStore(rdb *redis.Client, key string, log *zap.Logger) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisStore{rdb: rdb, key: key, log: log}
}

// OpenRedis crea el cliente y hace PING.
func OpenRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (s *RedisStore) Load(ctx context.Context) (map[string]domain.GuildConfig, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return map[string]domain.GuildConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return decodeSnapshot(data, s.log)
}

func (s *RedisStore) Save(ctx context.Context, configs map[string]domain.GuildConfig) error {
	data, err := encodeSnapshot(configs)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}
