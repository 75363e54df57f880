package tokenstore

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-yayasan"
	"github.com/goliatone/go-yayasan/repository"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var (
	_ yayasan.BatchTokenStore    = &BunStore{}
	_ yayasan.ScopableTokenStore = &BunStore{}
)

// OpenSQLite opens dsn through sqliteshim and wraps it in bun
func OpenSQLite(dsn string) (*bun.DB, error) {
	if dsn == "" {
		return nil, goerrors.New("sqlite dsn is required", goerrors.CategoryBadInput)
	}
	db, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite").
			WithMetadata(map[string]any{"dsn": dsn})
	}
	db.SetMaxOpenConns(1)
	return bun.NewDB(db, sqlitedialect.New()), nil
}

// BunStore persists values in the session_values table, one row per
// (scope, key).
type BunStore struct {
	manager *repository.Manager
	scope   string
	s       settings
}

// NewBunStore creates the table if needed and returns a store bound to
// the configured scope.
func NewBunStore(ctx context.Context, db *bun.DB, opts ...Option) (*BunStore, error) {
	manager := repository.NewManager(db)
	if err := manager.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid bun store")
	}
	if err := manager.Migrate(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to migrate session_values")
	}

	s := newSettings(opts...)
	return &BunStore{manager: manager, scope: s.scope, s: s}, nil
}

// Scope returns the scope rows are written under
func (b *BunStore) Scope() string {
	return b.scope
}

// WithScope returns a view of the same table limited to scope
func (b *BunStore) WithScope(scope string) yayasan.TokenStore {
	return &BunStore{manager: b.manager, scope: scope, s: b.s}
}

func (b *BunStore) Read(key string) (string, bool) {
	ctx, cancel := b.s.context()
	defer cancel()

	value, found, err := b.manager.SessionValues().Find(ctx, b.scope, key)
	if err != nil {
		b.s.logger.Error("bun store read %s/%s: %s", b.scope, key, err)
		return "", false
	}
	return value, found
}

func (b *BunStore) Write(key, value string) error {
	return b.WriteAll(map[string]string{key: value})
}

func (b *BunStore) Clear(key string) error {
	return b.ClearAll(key)
}

func (b *BunStore) WriteAll(values map[string]string) error {
	ctx, cancel := b.s.context()
	defer cancel()

	err := b.manager.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return b.manager.SessionValues().WithDB(tx).Upsert(ctx, b.scope, values)
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write session values").
			WithMetadata(map[string]any{"scope": b.scope})
	}
	return nil
}

func (b *BunStore) ClearAll(keys ...string) error {
	ctx, cancel := b.s.context()
	defer cancel()

	if err := b.manager.SessionValues().Delete(ctx, b.scope, keys...); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear session values").
			WithMetadata(map[string]any{"scope": b.scope})
	}
	return nil
}

// Prune drops every scope that has not been written for maxAge
func (b *BunStore) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	n, err := b.manager.SessionValues().DeleteStale(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to prune session values")
	}
	return n, nil
}

// Close releases the database handle
func (b *BunStore) Close() error {
	return b.manager.Close()
}
