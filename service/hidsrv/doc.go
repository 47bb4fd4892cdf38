// SPDX-License-Identifier: BSD-3-Clause

// Package hidsrv relays remote input into the target PC. It selects one
// backend — the USB gadget HID functions, a CH9329-class serial bridge, or
// none — translates browser events into boot-protocol reports and pushes
// them through a strict FIFO queue with at most one report in flight per
// device, so the target sees a linearizable input sequence.
//
// A supervisor samples backend health at 1 Hz and publishes state
// transitions and LED changes on the bus. Reopening a failed gadget device
// with backoff happens in the OTG backend's write path. Events are
// only dropped once a backend has declared itself failed.
package hidsrv
