package cart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound is returned by Storage.Read when nothing is stored under the key.
var ErrNotFound = errors.New("cart not found")

// Storage is the durable port a cart is written to after every mutation.
type Storage interface {
	// Read returns the bytes stored under key, or ErrNotFound.
	Read(key string) ([]byte, error)

	// Write replaces the bytes stored under key.
	Write(key string, data []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// MemoryStorage keeps carts in process memory.
type MemoryStorage struct {
	mu    sync.RWMutex
	carts map[string][]byte
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{carts: make(map[string][]byte)}
}

func (m *MemoryStorage) Read(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.carts[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStorage) Write(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.carts[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.carts, key)
	return nil
}

// FileStorage keeps one JSON file per cart in a directory.
type FileStorage struct {
	dir string
}

// NewFileStorage creates the directory if needed and returns a file-backed storage.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cart directory %s: %w", dir, err)
	}
	return &FileStorage{dir: dir}, nil
}

func (f *FileStorage) path(key string) string {
	// keys are session ids; keep them from escaping the directory
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(f.dir, safe+".json")
}

func (f *FileStorage) Read(key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cart file: %w", err)
	}
	return data, nil
}

// Write stores data via a temp file and rename so a crash never leaves a torn file.
func (f *FileStorage) Write(key string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, ".cart-*")
	if err != nil {
		return fmt.Errorf("failed to create temp cart file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cart file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close cart file: %w", err)
	}
	if err := os.Rename(tmpName, f.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cart file: %w", err)
	}
	return nil
}

func (f *FileStorage) Delete(key string) error {
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete cart file: %w", err)
	}
	return nil
}
