// SPDX-License-Identifier: BSD-3-Clause

package msdsrv

import "errors"

var (
	// ErrMsdBusy indicates an operation conflicts with the active connection.
	ErrMsdBusy = errors.New("mass storage busy")

	// ErrImageMissing indicates the referenced image does not exist.
	ErrImageMissing = errors.New("image not found")

	// ErrImageConnected indicates a delete of the currently connected image.
	ErrImageConnected = errors.New("image is connected to the target")

	// ErrUploadFailed indicates an image upload could not be completed.
	ErrUploadFailed = errors.New("image upload failed")

	// ErrInvalidConfiguration indicates the service configuration failed validation.
	ErrInvalidConfiguration = errors.New("invalid MSD configuration")

	// ErrNotRunning indicates the service has not finished starting.
	ErrNotRunning = errors.New("MSD service not running")
)
