// SPDX-License-Identifier: BSD-3-Clause

// Package atxsrv toggles the target's front-panel power and reset lines.
// Two drivers exist: direct GPIO lines through the character-device
// interface, or a serial USB relay board. Click operations are serialized;
// the power LED line is sampled to report target power state.
package atxsrv
