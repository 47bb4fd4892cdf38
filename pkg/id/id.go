// SPDX-License-Identifier: BSD-3-Clause

package id

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/one-kvm/one-kvm/pkg/file"
)

// NewID generates and returns a new UUID as a string.
func NewID() string {
	return uuid.New().String()
}

// GetOrCreatePersistentID retrieves the UUID stored in path/name, creating it
// on first use. Concurrent first-time callers race on an atomic create; the
// loser reads back whatever the winner wrote.
func GetOrCreatePersistentID(name, path string) (string, error) {
	fullPath := filepath.Join(path, name)

	if _, err := os.Stat(fullPath); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %w", ErrFileStat, err)
	} else if err == nil {
		return readID(fullPath)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", ErrDirectoryCreation, err)
	}

	id := uuid.New()
	err := file.AtomicCreateFile(fullPath, []byte(id.String()), 0o600)
	switch {
	case err == nil:
		return id.String(), nil
	case errors.Is(err, file.ErrFileAlreadyExists) || os.IsExist(err):
		return readID(fullPath)
	default:
		return "", fmt.Errorf("%w: %w", ErrFileCreation, err)
	}
}

func readID(fullPath string) (string, error) {
	b, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileRead, err)
	}

	id, err := uuid.ParseBytes(bytes.TrimSpace(b))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidUUID, err)
	}

	return id.String(), nil
}
