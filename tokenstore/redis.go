package tokenstore

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-yayasan"
	"github.com/redis/go-redis/v9"
)

var (
	_ yayasan.BatchTokenStore    = &RedisStore{}
	_ yayasan.ScopableTokenStore = &RedisStore{}
)

// RedisStore keeps one hash per scope. When a TTL is set every write
// pushes the hash expiry forward.
type RedisStore struct {
	client redis.UniversalClient
	scope  string
	s      settings
}

// NewRedisStore creates a store on top of an existing client
func NewRedisStore(client redis.UniversalClient, opts ...Option) (*RedisStore, error) {
	if client == nil {
		return nil, goerrors.New("redis client is required", goerrors.CategoryBadInput)
	}
	s := newSettings(opts...)
	return &RedisStore{client: client, scope: s.scope, s: s}, nil
}

// NewRedisStoreWithAddr dials addr
func NewRedisStoreWithAddr(addr string, opts ...Option) (*RedisStore, error) {
	if addr == "" {
		return nil, goerrors.New("redis address is required", goerrors.CategoryBadInput)
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return NewRedisStore(client, opts...)
}

// NewRedisStoreWithURL creates a store from a redis:// URL
func NewRedisStoreWithURL(url string, opts ...Option) (*RedisStore, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid redis url")
	}
	return NewRedisStore(redis.NewClient(o), opts...)
}

// Ping checks the connection
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// WithScope returns a view limited to the hash for scope
func (r *RedisStore) WithScope(scope string) yayasan.TokenStore {
	return &RedisStore{client: r.client, scope: scope, s: r.s}
}

// HashKey returns the Redis key of the current scope
func (r *RedisStore) HashKey() string {
	return r.s.keyPrefix + r.scope
}

func (r *RedisStore) Read(key string) (string, bool) {
	ctx, cancel := r.s.context()
	defer cancel()

	v, err := r.client.HGet(ctx, r.HashKey(), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		r.s.logger.Error("redis store read %s/%s: %s", r.HashKey(), key, err)
		return "", false
	}
	return v, true
}

func (r *RedisStore) Write(key, value string) error {
	return r.WriteAll(map[string]string{key: value})
}

func (r *RedisStore) Clear(key string) error {
	return r.ClearAll(key)
}

func (r *RedisStore) WriteAll(values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	ctx, cancel := r.s.context()
	defer cancel()

	args := make([]any, 0, len(values)*2)
	for k, v := range values {
		args = append(args, k, v)
	}

	hash := r.HashKey()
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, hash, args...)
		if r.s.ttl > 0 {
			pipe.Expire(ctx, hash, r.s.ttl)
		}
		return nil
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write session hash").
			WithMetadata(map[string]any{"hash": hash})
	}
	return nil
}

func (r *RedisStore) ClearAll(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	ctx, cancel := r.s.context()
	defer cancel()

	hash := r.HashKey()
	if err := r.client.HDel(ctx, hash, keys...).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear session hash").
			WithMetadata(map[string]any{"hash": hash})
	}
	return nil
}

// Close closes the underlying client
func (r *RedisStore) Close() error {
	return r.client.Close()
}
