package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend stores one file per key in a directory
type FileBackend struct {
	dir string
}

// NewFileBackend creates a file backend, creating dir if it doesn't exist
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		dir = "./sessions"
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// path derives a filesystem-safe file name from the key
func (b *FileBackend) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(b.dir, "session_"+hex.EncodeToString(sum[:16])+".txt")
}

// Load reads the value stored under key
func (b *FileBackend) Load(_ context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session file: %w", err)
	}
	if len(data) == 0 {
		return "", false, nil
	}
	return string(data), true, nil
}

// Save writes value atomically with restricted permissions
func (b *FileBackend) Save(_ context.Context, key, value string) error {
	target := b.path(key)

	tmp, err := os.CreateTemp(b.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close session file: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// Delete removes the file of key
func (b *FileBackend) Delete(_ context.Context, key string) error {
	if err := os.Remove(b.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}
