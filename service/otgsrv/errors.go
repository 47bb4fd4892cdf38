// SPDX-License-Identifier: BSD-3-Clause

package otgsrv

import "errors"

var (
	// ErrGadgetBindFailed indicates the gadget could not be created or bound
	// to a UDC; without a UDC the service fails fast at startup.
	ErrGadgetBindFailed = errors.New("gadget bind failed")

	// ErrGadgetStuck indicates the UDC did not reach a connected state after
	// a rebind; configfs state is left as-is for operator inspection.
	ErrGadgetStuck = errors.New("gadget stuck after rebind")

	// ErrGadgetEndpointExhausted indicates the endpoint budget refused the
	// allocation.
	ErrGadgetEndpointExhausted = errors.New("gadget endpoint budget exhausted")

	// ErrStaleHandle indicates a handle from an earlier gadget generation.
	ErrStaleHandle = errors.New("stale gadget handle")

	// ErrMsdBusy indicates a mass-storage attach while one is already active.
	ErrMsdBusy = errors.New("mass storage already attached")

	// ErrNotRunning indicates the service has not finished starting.
	ErrNotRunning = errors.New("OTG service not running")

	// ErrInvalidConfiguration indicates the service configuration failed validation.
	ErrInvalidConfiguration = errors.New("invalid OTG configuration")
)
