// SPDX-License-Identifier: BSD-3-Clause

// Package broadcast is the data-plane fan-out primitive: one producer, many
// receivers, each with its own bounded ring. Publishing never blocks; a full
// ring drops the oldest droppable item. Control-plane events travel over
// pkg/bus instead — this package exists for frames, where marshaling or
// copying per subscriber would blow the latency budget.
package broadcast
