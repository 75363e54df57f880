package repository

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// sessionValueNamespace seeds the row ids, one id per (scope, key)
var sessionValueNamespace = uuid.MustParse("5b0e4c0e-3f7a-4d52-9a55-2f6b8f3c1d20")

var (
	deleteKeysSQL = `DELETE FROM "session_values"
WHERE "scope" = ? AND "key" IN (?)
RETURNING *;`

	deleteScopeSQL = `DELETE FROM "session_values"
WHERE "scope" = ?
RETURNING *;`

	selectScopeSQL = `SELECT * FROM "session_values"
WHERE "scope" = ?;`
)

// SessionValueModel is the Bun model for persisted session values.
type SessionValueModel struct {
	bun.BaseModel `bun:"table:session_values"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	Scope     string    `bun:"scope,notnull,unique:scope_key"`
	Key       string    `bun:"key,notnull,unique:scope_key"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// SessionValueID returns the row id for key in scope
func SessionValueID(scope, key string) uuid.UUID {
	return uuid.NewSHA1(sessionValueNamespace, []byte(scope+"\x00"+key))
}

func newSessionValues(db *bun.DB) repository.Repository[*SessionValueModel] {
	handlers := repository.ModelHandlers[*SessionValueModel]{
		NewRecord: func() *SessionValueModel {
			return &SessionValueModel{}
		},
		GetID: func(record *SessionValueModel) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		// ids are derived, never random, so a row can be found by its slot
		SetID: func(record *SessionValueModel, _ uuid.UUID) {
			record.ID = SessionValueID(record.Scope, record.Key)
		},
		GetIdentifier: func() string {
			return "id"
		},
	}
	return repository.NewRepository(db, handlers)
}

// SessionValueRepository stores session values keyed by (scope, key).
type SessionValueRepository struct {
	repository.Repository[*SessionValueModel]
	db  *bun.DB
	tx  bun.IDB
	now func() time.Time
}

// NewSessionValueRepository creates a new repository.
func NewSessionValueRepository(db *bun.DB) *SessionValueRepository {
	return &SessionValueRepository{
		Repository: newSessionValues(db),
		db:         db,
		tx:         db,
		now:        time.Now,
	}
}

// WithDB returns a copy bound to tx, use it inside RunInTx.
func (r *SessionValueRepository) WithDB(tx bun.IDB) *SessionValueRepository {
	c := *r
	c.tx = tx
	return &c
}

// WithClock returns a copy that stamps rows with now.
func (r *SessionValueRepository) WithClock(now func() time.Time) *SessionValueRepository {
	c := *r
	c.now = now
	return &c
}

// CreateTable creates the session_values table if missing.
func (r *SessionValueRepository) CreateTable(ctx context.Context) error {
	_, err := r.db.NewCreateTable().
		Model((*SessionValueModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Find returns the value for key in scope, found is false when no row exists.
func (r *SessionValueRepository) Find(ctx context.Context, scope, key string) (value string, found bool, err error) {
	record, err := r.GetByIdentifierTx(ctx, r.tx, SessionValueID(scope, key).String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return record.Value, true, nil
}

// FindScope returns every value stored in scope.
func (r *SessionValueRepository) FindScope(ctx context.Context, scope string) (map[string]string, error) {
	records, err := r.RawTx(ctx, r.tx, selectScopeSQL, scope)
	if err != nil && !repository.IsRecordNotFound(err) {
		return nil, err
	}

	out := make(map[string]string, len(records))
	for _, m := range records {
		out[m.Key] = m.Value
	}
	return out, nil
}

// Upsert writes every value, updating the rows that already exist. Run it
// inside RunInTx to apply the values as one unit.
func (r *SessionValueRepository) Upsert(ctx context.Context, scope string, values map[string]string) error {
	now := r.now().UTC()
	for k, v := range values {
		record := &SessionValueModel{
			ID:        SessionValueID(scope, k),
			Scope:     scope,
			Key:       k,
			Value:     v,
			UpdatedAt: now,
		}
		if err := r.upsertTx(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (r *SessionValueRepository) upsertTx(ctx context.Context, record *SessionValueModel) error {
	_, err := r.GetByIdentifierTx(ctx, r.tx, record.ID.String())
	if err == nil {
		_, err = r.UpdateTx(ctx, r.tx, record, repository.UpdateByID(record.ID.String()))
		return err
	}

	if !repository.IsRecordNotFound(err) {
		return err
	}

	_, err = r.CreateTx(ctx, r.tx, record)
	return err
}

// Delete removes keys from scope, missing keys are ignored.
func (r *SessionValueRepository) Delete(ctx context.Context, scope string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := r.RawTx(ctx, r.tx, deleteKeysSQL, scope, bun.In(keys))
	if repository.IsRecordNotFound(err) {
		return nil
	}
	return err
}

// DeleteScope removes every value in scope.
func (r *SessionValueRepository) DeleteScope(ctx context.Context, scope string) error {
	_, err := r.RawTx(ctx, r.tx, deleteScopeSQL, scope)
	if repository.IsRecordNotFound(err) {
		return nil
	}
	return err
}

// DeleteStale removes scopes whose newest value is older than before and
// returns the number of rows removed.
func (r *SessionValueRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	fresh := r.tx.NewSelect().
		Model((*SessionValueModel)(nil)).
		Column("scope").
		Where("updated_at >= ?", before.UTC())

	res, err := r.tx.NewDelete().
		Model((*SessionValueModel)(nil)).
		Where("scope NOT IN (?)", fresh).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
