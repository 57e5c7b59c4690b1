package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrCorruptFile indicates the store file exists but is not a YAML mapping.
var ErrCorruptFile = errors.New("corrupt store file")

// FileKV is a key-value store kept in a single YAML file. Values are stored as
// strings so the file stays readable by hand.
type FileKV struct {
	mu   sync.Mutex
	path string
}

// OpenFile returns a FileKV backed by path. The file is created on first write.
func OpenFile(path string) (*FileKV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileKV{path: path}, nil
}

// Path returns the backing file path.
func (f *FileKV) Path() string {
	return f.path
}

// BackupPath is where Set moves a corrupt store file before rewriting it.
func (f *FileKV) BackupPath() string {
	return f.path + ".corrupt"
}

// Get returns the value stored under key.
func (f *FileKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.load()
	if err != nil {
		return nil, false, err
	}
	value, ok := entries[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(value), true, nil
}

// Set replaces the value stored under key and rewrites the file atomically.
// A file that cannot be parsed is moved aside to BackupPath and replaced by a
// fresh one holding only key.
func (f *FileKV) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.load()
	if errors.Is(err, ErrCorruptFile) {
		// The old bytes are only kept for inspection; losing them must not
		// block new writes.
		_ = os.Rename(f.path, f.BackupPath())
		entries, err = map[string]string{}, nil
	}
	if err != nil {
		return err
	}
	entries[key] = string(value)
	return f.write(entries)
}

func (f *FileKV) load() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}
	entries := map[string]string{}
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	if entries == nil {
		entries = map[string]string{}
	}
	return entries, nil
}

func (f *FileKV) write(entries map[string]string) error {
	serialized, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal store yaml: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(f.path), "store-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmpFile.Write(serialized); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close store file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}
