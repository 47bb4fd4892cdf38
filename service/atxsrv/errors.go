// SPDX-License-Identifier: BSD-3-Clause

package atxsrv

import "errors"

var (
	// ErrAtxBusy indicates a click while another is in progress.
	ErrAtxBusy = errors.New("ATX operation in progress")

	// ErrDriverUnavailable indicates the configured driver could not open
	// its lines or port.
	ErrDriverUnavailable = errors.New("ATX driver unavailable")

	// ErrInvalidConfiguration indicates the service configuration failed validation.
	ErrInvalidConfiguration = errors.New("invalid ATX configuration")

	// ErrNotRunning indicates the service has not finished starting.
	ErrNotRunning = errors.New("ATX service not running")
)
