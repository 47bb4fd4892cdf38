// SPDX-License-Identifier: BSD-3-Clause

package video

import "errors"

var (
	// ErrDeviceNotFound indicates the capture device path does not exist.
	ErrDeviceNotFound = errors.New("video device not found")

	// ErrDeviceBusy indicates the capture device is held by another process.
	ErrDeviceBusy = errors.New("video device busy")

	// ErrDeviceLost indicates the capture device disappeared mid-stream.
	ErrDeviceLost = errors.New("video device lost")

	// ErrNoSignal indicates the device reports no input signal.
	ErrNoSignal = errors.New("no video signal")

	// ErrFormatUnsupported indicates no advertised format intersects the preference list.
	ErrFormatUnsupported = errors.New("no supported pixel format")

	// ErrResolutionUnsupported indicates the chosen format advertises no usable resolution.
	ErrResolutionUnsupported = errors.New("no supported resolution")

	// ErrNotStarted indicates a frame was requested before Start.
	ErrNotStarted = errors.New("capture not started")

	// ErrInvalidConfig indicates the capture configuration failed validation.
	ErrInvalidConfig = errors.New("invalid capture configuration")
)
