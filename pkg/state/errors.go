// SPDX-License-Identifier: BSD-3-Clause

package state

import "errors"

var (
	// ErrInvalidTransition indicates a trigger is not permitted in the current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidConfig indicates the machine configuration is invalid.
	ErrInvalidConfig = errors.New("invalid state machine configuration")
)
