// SPDX-License-Identifier: BSD-3-Clause

//go:build linux
// +build linux

package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"
)

// AtomicCreateFile creates a file atomically by writing to a temporary file
// in the same directory and renaming it into place with RENAME_NOREPLACE.
// It fails with ErrFileAlreadyExists if the destination exists.
func AtomicCreateFile(filename string, data []byte, perm os.FileMode) error {
	tmpname, err := stage(filename, data, perm)
	if err != nil {
		return err
	}

	if err := unix.Renameat2(unix.AT_FDCWD, tmpname, unix.AT_FDCWD, filename, unix.RENAME_NOREPLACE); err != nil {
		_ = os.Remove(tmpname)
		if errors.Is(err, syscall.EEXIST) {
			return fmt.Errorf("%w: %s", ErrFileAlreadyExists, filename)
		}
		return fmt.Errorf("%w: %w", ErrAtomicRename, err)
	}

	return nil
}

// AtomicUpdateFile replaces a file atomically, creating it if absent.
func AtomicUpdateFile(filename string, data []byte, perm os.FileMode) error {
	tmpname, err := stage(filename, data, perm)
	if err != nil {
		return err
	}

	if err := os.Rename(tmpname, filename); err != nil {
		_ = os.Remove(tmpname)
		return fmt.Errorf("%w: %w", ErrAtomicRename, err)
	}

	return nil
}

func stage(filename string, data []byte, perm os.FileMode) (string, error) {
	dir := filepath.Dir(filename)
	tmpfile, err := os.CreateTemp(dir, fmt.Sprintf(".%s.tmp.*", filepath.Base(filename)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTemporaryFileCreation, err)
	}
	tmpname := tmpfile.Name()

	if _, err := tmpfile.Write(data); err != nil {
		_ = tmpfile.Close()
		_ = os.Remove(tmpname)
		return "", fmt.Errorf("%w: %w", ErrTemporaryFileWrite, err)
	}

	if err := tmpfile.Close(); err != nil {
		_ = os.Remove(tmpname)
		return "", fmt.Errorf("%w: %w", ErrTemporaryFileClose, err)
	}

	if err := os.Chmod(tmpname, perm); err != nil {
		_ = os.Remove(tmpname)
		return "", fmt.Errorf("%w: %w", ErrTemporaryFileChmod, err)
	}

	return tmpname, nil
}
