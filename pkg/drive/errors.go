// SPDX-License-Identifier: BSD-3-Clause

package drive

import "errors"

var (
	// ErrNotInitialized indicates no drive image exists yet.
	ErrNotInitialized = errors.New("drive image not initialized")

	// ErrAttached indicates the operation is refused while the drive is
	// attached to the target.
	ErrAttached = errors.New("drive attached to target")

	// ErrFormat indicates the image could not be created or formatted.
	ErrFormat = errors.New("failed to format drive image")

	// ErrIO indicates a filesystem operation inside the image failed.
	ErrIO = errors.New("drive filesystem operation failed")

	// ErrNotFound indicates the path does not exist inside the image.
	ErrNotFound = errors.New("path not found on drive")
)
