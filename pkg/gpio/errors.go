// SPDX-License-Identifier: BSD-3-Clause

package gpio

import "errors"

var (
	// ErrInvalidValue indicates a bad chip path or line offset.
	ErrInvalidValue = errors.New("invalid GPIO value")

	// ErrLineBusy indicates the line is claimed by another consumer.
	ErrLineBusy = errors.New("GPIO line busy")

	// ErrOperationFailed indicates a GPIO request or IO operation failed.
	ErrOperationFailed = errors.New("GPIO operation failed")
)
