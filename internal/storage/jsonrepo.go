package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// JSONRepository reads and atomically rewrites a single JSON document.
// Writes are serialised across processes by an exclusive lock on
// path + ".lock"; the lock file is kept between runs.
type JSONRepository struct {
	path string
}

func NewJSONRepository(path string) *JSONRepository {
	return &JSONRepository{path: path}
}

func (r *JSONRepository) Path() string { return r.path }

// Read returns the raw document; a missing file yields os.ErrNotExist.
func (r *JSONRepository) Read() ([]byte, error) {
	return os.ReadFile(r.path)
}

func (r *JSONRepository) Write(data []byte) error {
	lock := flock.New(r.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", r.path, err)
	}
	defer lock.Unlock()

	return WriteFile(r.path, data)
}

// Init creates an empty document when the file does not exist yet.
// It reports whether a file was created.
func (r *JSONRepository) Init() (bool, error) {
	_, err := os.Stat(r.path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := r.Write([]byte("{\n  \"tasks\": []\n}\n")); err != nil {
		return false, err
	}
	return true, nil
}

// WriteFile replaces path with data: the bytes go to a temp file
// (base.*.tmp) in the same directory which is then renamed over path.
func WriteFile(path string, data []byte) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, base+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
