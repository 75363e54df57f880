package tokenstore

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-yayasan"
)

var _ yayasan.BatchTokenStore = &FileStore{}

// FileStore keeps values in a single JSON document. The file is read on
// every call so several processes can share it, and replaced atomically
// on every change.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger yayasan.Logger
}

// NewFileStore creates a store backed by path, the file is created on
// first write.
func NewFileStore(path string, opts ...Option) (*FileStore, error) {
	if path == "" {
		return nil, goerrors.New("file store path is required", goerrors.CategoryBadInput)
	}
	s := newSettings(opts...)
	return &FileStore{path: path, logger: s.logger}, nil
}

// Path returns the location of the backing file
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Read(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		f.logger.Error("file store read %s: %s", key, err)
		return "", false
	}
	v, ok := values[key]
	return v, ok
}

func (f *FileStore) Write(key, value string) error {
	return f.WriteAll(map[string]string{key: value})
}

func (f *FileStore) Clear(key string) error {
	return f.ClearAll(key)
}

func (f *FileStore) WriteAll(values map[string]string) error {
	return f.update(func(current map[string]string) {
		for k, v := range values {
			current[k] = v
		}
	})
}

func (f *FileStore) ClearAll(keys ...string) error {
	return f.update(func(current map[string]string) {
		for _, k := range keys {
			delete(current, k)
		}
	})
}

func (f *FileStore) update(fn func(map[string]string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		// an unreadable file is replaced rather than blocking logout
		f.logger.Error("file store discarding unreadable %s: %s", f.path, err)
		values = map[string]string{}
	}

	fn(values)
	return f.save(values)
}

func (f *FileStore) load() (map[string]string, error) {
	values := map[string]string{}

	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return values, nil
	}

	if err := json.Unmarshal(b, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func (f *FileStore) save(values map[string]string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create token store directory")
	}

	b, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode token store")
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create token store file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write token store")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write token store")
	}
	if err := tmp.Close(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write token store")
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to replace token store").
			WithMetadata(map[string]any{"path": f.path})
	}
	return nil
}
