// SPDX-License-Identifier: BSD-3-Clause

package id

import "errors"

var (
	// ErrFileStat indicates the identity file could not be inspected.
	ErrFileStat = errors.New("failed to stat identity file")

	// ErrFileRead indicates the identity file could not be read.
	ErrFileRead = errors.New("failed to read identity file")

	// ErrFileCreation indicates the identity file could not be created.
	ErrFileCreation = errors.New("failed to create identity file")

	// ErrDirectoryCreation indicates the identity directory could not be created.
	ErrDirectoryCreation = errors.New("failed to create identity directory")

	// ErrInvalidUUID indicates the identity file does not contain a valid UUID.
	ErrInvalidUUID = errors.New("identity file contains invalid UUID")
)
