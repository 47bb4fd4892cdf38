// SPDX-License-Identifier: BSD-3-Clause

package audiosrv

import "errors"

var (
	// ErrAlsaError indicates the capture device could not be opened or read.
	ErrAlsaError = errors.New("audio capture error")

	// ErrEncoderInit indicates the Opus encoder could not be created.
	ErrEncoderInit = errors.New("failed to initialize Opus encoder")

	// ErrInvalidConfiguration indicates the service configuration failed validation.
	ErrInvalidConfiguration = errors.New("invalid audio configuration")

	// ErrNotRunning indicates the service has not finished starting.
	ErrNotRunning = errors.New("audio service not running")
)
