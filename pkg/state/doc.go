// SPDX-License-Identifier: BSD-3-Clause

// Package state wraps qmuntal/stateless with the two machine shapes the
// appliance uses: the streamer lifecycle and the HID backend health cycle.
// Machines are thread-safe, expose the current state as a string and invoke
// an optional broadcast callback on every transition so controllers can
// publish bus events without holding machine locks.
package state
