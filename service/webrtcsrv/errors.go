// SPDX-License-Identifier: BSD-3-Clause

package webrtcsrv

import "errors"

var (
	// ErrSessionNotFound indicates an unknown or already closed session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNegotiationFailed indicates the SDP exchange could not complete.
	ErrNegotiationFailed = errors.New("WebRTC negotiation failed")

	// ErrCodecUnsupported indicates the requested codec preference cannot be
	// served.
	ErrCodecUnsupported = errors.New("codec not supported")

	// ErrInvalidConfiguration indicates the service configuration failed validation.
	ErrInvalidConfiguration = errors.New("invalid WebRTC configuration")

	// ErrNotRunning indicates the service has not finished starting.
	ErrNotRunning = errors.New("WebRTC service not running")
)
