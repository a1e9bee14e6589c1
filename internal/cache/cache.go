// Package cache keeps read-mostly query results in Redis. Entries are grouped in
// namespaces; invalidating a namespace bumps its version so stale keys expire unread.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/config"
)

const keyPrefix = "foodgram"

var Module = fx.Provide(New)

type (
	Store interface {
		Get(ctx context.Context, namespace, key string, dst interface{}) (bool, error)
		Set(ctx context.Context, namespace, key string, v interface{}) error
		Invalidate(ctx context.Context, namespace string) error
		Close() error
	}

	Redis struct {
		client *redis.Client
		ttl    time.Duration
		logger *zap.SugaredLogger
	}

	// Nop is used when no Redis address is configured.
	Nop struct{}
)

// New is the fx constructor; the client is pinged on start and closed on stop.
func New(lc fx.Lifecycle, cfg *config.Config, l *zap.SugaredLogger) Store {
	store := Open(cfg, l)
	if r, ok := store.(*Redis); ok {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return r.Ping(ctx)
			},
			OnStop: func(ctx context.Context) error {
				return r.Close()
			},
		})
	}
	return store
}

func Open(cfg *config.Config, l *zap.SugaredLogger) Store {
	if cfg.RedisAddr == "" {
		l.Infow("redis address not set, caching disabled")
		return Nop{}
	}
	return NewRedis(redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	}), cfg.CacheTTL, l)
}

func NewRedis(client *redis.Client, ttl time.Duration, l *zap.SugaredLogger) *Redis {
	return &Redis{client: client, ttl: ttl, logger: l}
}

func (r *Redis) Ping(ctx context.Context) error {
	return errors.Wrap(r.client.Ping(ctx).Err(), "ping redis")
}

func (r *Redis) Get(ctx context.Context, namespace, key string, dst interface{}) (bool, error) {
	k, err := r.key(ctx, namespace, key)
	if err != nil {
		return false, err
	}
	raw, err := r.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "get")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, errors.Wrap(err, "unmarshal")
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, namespace, key string, v interface{}) error {
	k, err := r.key(ctx, namespace, key)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal")
	}
	return errors.Wrap(r.client.Set(ctx, k, raw, r.ttl).Err(), "set")
}

func (r *Redis) Invalidate(ctx context.Context, namespace string) error {
	v, err := r.client.Incr(ctx, versionKey(namespace)).Result()
	if err != nil {
		return errors.Wrap(err, "bump version")
	}
	r.logger.Debugw("cache namespace invalidated", "namespace", namespace, "version", v)
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) key(ctx context.Context, namespace, key string) (string, error) {
	v, err := r.client.Get(ctx, versionKey(namespace)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", errors.Wrap(err, "get version")
	}
	return dataKey(namespace, v, key), nil
}

func versionKey(namespace string) string {
	return fmt.Sprintf("%s:%s:version", keyPrefix, namespace)
}

func dataKey(namespace string, version int64, key string) string {
	return fmt.Sprintf("%s:%s:v%d:%s", keyPrefix, namespace, version, key)
}

func (Nop) Get(context.Context, string, string, interface{}) (bool, error) { return false, nil }

func (Nop) Set(context.Context, string, string, interface{}) error { return nil }

func (Nop) Invalidate(context.Context, string) error { return nil }

func (Nop) Close() error { return nil }
