// SPDX-License-Identifier: BSD-3-Clause

package file

import "errors"

var (
	// ErrTemporaryFileCreation indicates the staging file could not be created.
	ErrTemporaryFileCreation = errors.New("failed to create temporary file")

	// ErrTemporaryFileWrite indicates the staging file could not be written.
	ErrTemporaryFileWrite = errors.New("failed to write temporary file")

	// ErrTemporaryFileClose indicates the staging file could not be closed.
	ErrTemporaryFileClose = errors.New("failed to close temporary file")

	// ErrTemporaryFileChmod indicates permissions could not be applied to the staging file.
	ErrTemporaryFileChmod = errors.New("failed to chmod temporary file")

	// ErrFileAlreadyExists indicates the destination already exists for a create-only operation.
	ErrFileAlreadyExists = errors.New("file already exists")

	// ErrAtomicRename indicates the final rename into place failed.
	ErrAtomicRename = errors.New("failed to rename file atomically")
)
