// SPDX-License-Identifier: BSD-3-Clause

// Package gpio wraps the character-device GPIO interface for the ATX power
// control lines: momentary outputs driving the power and reset buttons and
// inputs sensing the front-panel LEDs.
package gpio
