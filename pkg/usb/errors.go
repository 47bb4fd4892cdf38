// SPDX-License-Identifier: BSD-3-Clause

package usb

import "errors"

var (
	// ErrConfigFSNotMounted indicates configfs is not mounted at the expected root.
	ErrConfigFSNotMounted = errors.New("configfs not mounted")

	// ErrGadgetExists indicates a gadget with the specified name already exists.
	ErrGadgetExists = errors.New("USB gadget already exists")

	// ErrGadgetNotFound indicates the specified gadget could not be found.
	ErrGadgetNotFound = errors.New("USB gadget not found")

	// ErrInvalidConfig indicates the provided gadget configuration is invalid.
	ErrInvalidConfig = errors.New("invalid USB gadget configuration")

	// ErrUDCNotFound indicates no USB device controller is present.
	ErrUDCNotFound = errors.New("USB device controller not found")

	// ErrGadgetNotBound indicates the gadget is not bound to a UDC.
	ErrGadgetNotBound = errors.New("USB gadget not bound")

	// ErrBindTimeout indicates the UDC did not reach a connected state in time.
	ErrBindTimeout = errors.New("UDC did not reach configured state")

	// ErrFunctionExists indicates the function slot is already populated.
	ErrFunctionExists = errors.New("gadget function already exists")

	// ErrFunctionNotFound indicates the function slot is empty.
	ErrFunctionNotFound = errors.New("gadget function not found")

	// ErrEndpointExhausted indicates the UDC endpoint budget would be exceeded.
	ErrEndpointExhausted = errors.New("UDC endpoint budget exhausted")

	// ErrPermissionDenied indicates insufficient permissions for the configfs operation.
	ErrPermissionDenied = errors.New("permission denied for USB operation")
)
