// SPDX-License-Identifier: BSD-3-Clause

// Package ipc runs the embedded NATS server every other service uses for
// control-plane messaging. The server never listens on a network socket;
// services connect over in-process pipes obtained from the server's
// InProcessConnProvider. Event fan-out semantics (bounded per-subscriber
// buffering, lag on overflow) live in pkg/bus on top of this substrate.
package ipc
