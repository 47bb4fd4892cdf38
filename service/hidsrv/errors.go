// SPDX-License-Identifier: BSD-3-Clause

package hidsrv

import "errors"

var (
	// ErrHidUnavailable indicates no backend is configured or the backend
	// has failed; events are rejected rather than queued.
	ErrHidUnavailable = errors.New("HID unavailable")

	// ErrHidBackendFailed indicates the backend exhausted its recovery
	// attempts and stopped accepting events.
	ErrHidBackendFailed = errors.New("HID backend failed")

	// ErrAbsoluteUnsupported indicates the backend cannot move the pointer
	// absolutely.
	ErrAbsoluteUnsupported = errors.New("absolute mouse not supported by backend")

	// ErrInvalidConfiguration indicates the service configuration failed validation.
	ErrInvalidConfiguration = errors.New("invalid HID configuration")

	// ErrQueueFull indicates the send queue rejected an event burst.
	ErrQueueFull = errors.New("HID send queue full")
)
