// SPDX-License-Identifier: BSD-3-Clause

package ipc

import "errors"

var (
	// ErrInvalidConfiguration indicates the IPC configuration failed validation.
	ErrInvalidConfiguration = errors.New("invalid IPC configuration")

	// ErrServerCreationFailed indicates the embedded NATS server could not be created.
	ErrServerCreationFailed = errors.New("failed to create NATS server")

	// ErrServerStartTimeout indicates the NATS server did not become ready in time.
	ErrServerStartTimeout = errors.New("NATS server failed to start in time")

	// ErrExternalIPC indicates an external IPC connection was provided to the IPC service itself.
	ErrExternalIPC = errors.New("external IPC connection provided to IPC service")
)
