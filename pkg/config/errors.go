// SPDX-License-Identifier: BSD-3-Clause

package config

import "errors"

var (
	// ErrOpenFailed indicates the config database could not be opened.
	ErrOpenFailed = errors.New("failed to open config store")

	// ErrSectionNotFound indicates the named section has no stored or default value.
	ErrSectionNotFound = errors.New("config section not found")

	// ErrDecode indicates a stored section does not decode into its type.
	ErrDecode = errors.New("failed to decode config section")

	// ErrPersist indicates a section could not be written to the database.
	ErrPersist = errors.New("failed to persist config section")
)
