package yayasan

import (
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// Storage keys, other code depends on these names
const (
	KeyToken    = "token"
	KeyUser     = "user"
	KeyUserType = "userType"
)

// SessionKeys lists every key that makes up a persisted session
var SessionKeys = []string{KeyToken, KeyUser, KeyUserType}

var _ BatchTokenStore = &MemoryTokenStore{}

// MemoryTokenStore keeps values in process memory
type MemoryTokenStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{values: map[string]string{}}
}

func (m *MemoryTokenStore) Read(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryTokenStore) Write(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryTokenStore) Clear(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryTokenStore) WriteAll(values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *MemoryTokenStore) ClearAll(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Keys returns the keys currently held, mostly useful in tests
func (m *MemoryTokenStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	return keys
}

// ScopableTokenStore is implemented by backends that can partition
// sessions natively, a row scope or a Redis hash per browser.
type ScopableTokenStore interface {
	TokenStore
	WithScope(scope string) TokenStore
}

// ScopeTokenStore returns a view of store limited to scope. Backends that
// implement ScopableTokenStore are asked for their own view, anything else
// gets key prefixing.
func ScopeTokenStore(store TokenStore, scope string) TokenStore {
	if s, ok := store.(ScopableTokenStore); ok {
		return s.WithScope(scope)
	}
	return NewScopedTokenStore(store, scope)
}

var _ BatchTokenStore = &ScopedTokenStore{}

// ScopedTokenStore namespaces keys so one backing store can hold many
// sessions, e.g. one per browser.
type ScopedTokenStore struct {
	store TokenStore
	scope string
}

// NewScopedTokenStore wraps store so every key is prefixed with scope
func NewScopedTokenStore(store TokenStore, scope string) *ScopedTokenStore {
	return &ScopedTokenStore{store: store, scope: scope}
}

func (s *ScopedTokenStore) Scope() string {
	return s.scope
}

func (s *ScopedTokenStore) key(k string) string {
	if s.scope == "" {
		return k
	}
	return s.scope + ":" + k
}

func (s *ScopedTokenStore) Read(key string) (string, bool) {
	return s.store.Read(s.key(key))
}

func (s *ScopedTokenStore) Write(key, value string) error {
	return s.store.Write(s.key(key), value)
}

func (s *ScopedTokenStore) Clear(key string) error {
	return s.store.Clear(s.key(key))
}

func (s *ScopedTokenStore) WriteAll(values map[string]string) error {
	scoped := make(map[string]string, len(values))
	for k, v := range values {
		scoped[s.key(k)] = v
	}
	return writeAll(s.store, scoped)
}

func (s *ScopedTokenStore) ClearAll(keys ...string) error {
	scoped := make([]string, 0, len(keys))
	for _, k := range keys {
		scoped = append(scoped, s.key(k))
	}
	return clearAll(s.store, scoped...)
}

// MoveSession copies the session keys from src to dst in one batch and
// then clears them from src.
func MoveSession(dst, src TokenStore) error {
	values := make(map[string]string, len(SessionKeys))
	for _, k := range SessionKeys {
		if v, ok := src.Read(k); ok {
			values[k] = v
		}
	}
	if len(values) > 0 {
		if err := writeAll(dst, values); err != nil {
			return err
		}
	}
	return clearAll(src, SessionKeys...)
}

// writeAll uses the batch API when the store has one, otherwise it falls
// back to sequential writes.
func writeAll(store TokenStore, values map[string]string) error {
	if b, ok := store.(BatchTokenStore); ok {
		return b.WriteAll(values)
	}
	for k, v := range values {
		if err := store.Write(k, v); err != nil {
			return err
		}
	}
	return nil
}

func clearAll(store TokenStore, keys ...string) error {
	if b, ok := store.(BatchTokenStore); ok {
		return b.ClearAll(keys...)
	}
	var errs []string
	for _, k := range keys {
		if err := store.Clear(k); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return goerrors.New("token store: "+strings.Join(errs, "; "), goerrors.CategoryInternal)
	}
	return nil
}
