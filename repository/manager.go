package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

var (
	_ repository.Validator          = (*Manager)(nil)
	_ repository.TransactionManager = (*Manager)(nil)
)

// Manager owns the database handle and the repositories built on it.
type Manager struct {
	db            *bun.DB
	sessionValues *SessionValueRepository
}

func NewManager(db *bun.DB) *Manager {
	return &Manager{
		db:            db,
		sessionValues: NewSessionValueRepository(db),
	}
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}

	if m.sessionValues == nil {
		return errors.New("repository sessionValues should be initialized")
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// Migrate creates every table the repositories need.
func (m *Manager) Migrate(ctx context.Context) error {
	return m.sessionValues.CreateTable(ctx)
}

// RunInTx runs f inside a transaction. Bind repositories to tx with
// SessionValues().WithDB(tx).
func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m *Manager) SessionValues() *SessionValueRepository {
	return m.sessionValues
}

func (m *Manager) Close() error {
	return m.db.Close()
}
