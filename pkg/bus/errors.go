// SPDX-License-Identifier: BSD-3-Clause

package bus

import "errors"

var (
	// ErrNotConnected indicates the bus has no NATS connection.
	ErrNotConnected = errors.New("bus not connected")

	// ErrMarshal indicates an event could not be serialized.
	ErrMarshal = errors.New("failed to marshal event")

	// ErrSubscribe indicates a subscription could not be established.
	ErrSubscribe = errors.New("failed to subscribe")
)
