// SPDX-License-Identifier: BSD-3-Clause

// Package otgsrv is the sole owner of the USB gadget configfs tree. Every
// mutation — adding or removing HID functions, attaching or detaching the
// mass-storage backing file — goes through one mutex and one algorithm:
// unbind the UDC, mutate configfs, rebind, poll for the connected state.
// The service tracks a generation counter, a function slot table and the
// UDC endpoint budget, refusing allocations that would overrun the
// controller.
//
// The gadget mutex is a leaf lock: nothing else is acquired while holding
// it, and callers must not hold their own locks across calls into this
// service.
package otgsrv
