// SPDX-License-Identifier: BSD-3-Clause

package videosrv

import "errors"

var (
	// ErrEncoderUnavailable indicates no backend could produce an encoder
	// for the requested codec.
	ErrEncoderUnavailable = errors.New("no encoder available for codec")

	// ErrEncodingError indicates an encoder rejected a frame.
	ErrEncodingError = errors.New("encoding failed")

	// ErrDecodeError indicates a compressed frame could not be decoded.
	ErrDecodeError = errors.New("frame decode failed")

	// ErrInvalidConfiguration indicates the service configuration failed validation.
	ErrInvalidConfiguration = errors.New("invalid video configuration")

	// ErrNotRunning indicates the service has not finished starting.
	ErrNotRunning = errors.New("video service not running")
)
