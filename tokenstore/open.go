package tokenstore

import (
	"context"
	"io"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-yayasan"
)

const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Spec selects and configures a backend
type Spec struct {
	Driver    string
	Path      string
	DSN       string
	RedisAddr string
}

// Open builds the backend named by spec.Driver. Call Close on the result
// when done, it is a no-op for backends without resources.
func Open(ctx context.Context, spec Spec, opts ...Option) (yayasan.TokenStore, error) {
	switch strings.ToLower(spec.Driver) {
	case "", DriverMemory:
		return yayasan.NewMemoryTokenStore(), nil
	case DriverFile:
		return NewFileStore(spec.Path, opts...)
	case DriverSQLite:
		db, err := OpenSQLite(spec.DSN)
		if err != nil {
			return nil, err
		}
		store, err := NewBunStore(ctx, db, opts...)
		if err != nil {
			db.Close()
			return nil, err
		}
		return store, nil
	case DriverRedis:
		var (
			store *RedisStore
			err   error
		)
		if strings.HasPrefix(spec.RedisAddr, "redis://") || strings.HasPrefix(spec.RedisAddr, "rediss://") {
			store, err = NewRedisStoreWithURL(spec.RedisAddr, opts...)
		} else {
			store, err = NewRedisStoreWithAddr(spec.RedisAddr, opts...)
		}
		if err != nil {
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "redis is unreachable").
				WithMetadata(map[string]any{"addr": spec.RedisAddr})
		}
		return store, nil
	default:
		return nil, goerrors.New("unknown token store driver: "+spec.Driver, goerrors.CategoryBadInput).
			WithTextCode("UNKNOWN_STORE_DRIVER")
	}
}

// Close releases the resources held by store, if any
func Close(store yayasan.TokenStore) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
