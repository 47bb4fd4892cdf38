// SPDX-License-Identifier: BSD-3-Clause

package hid

// MouseKind discriminates mouse wire events.
type MouseKind byte

const (
	MouseMoveRel MouseKind = 0x00
	MouseMoveAbs MouseKind = 0x01
	MouseBtnDown MouseKind = 0x02
	MouseBtnUp   MouseKind = 0x03
	MouseScroll  MouseKind = 0x04
)

// MouseButton identifies a pointer button on the wire.
type MouseButton byte

const (
	ButtonLeft    MouseButton = 0
	ButtonMiddle  MouseButton = 1
	ButtonRight   MouseButton = 2
	ButtonBack    MouseButton = 3
	ButtonForward MouseButton = 4
)

// Modifier bitmask as carried on the wire and in the keyboard report.
const (
	ModLeftCtrl   byte = 0x01
	ModLeftShift  byte = 0x02
	ModLeftAlt    byte = 0x04
	ModLeftMeta   byte = 0x08
	ModRightCtrl  byte = 0x10
	ModRightShift byte = 0x20
	ModRightAlt   byte = 0x40
	ModRightMeta  byte = 0x80
)

// KeyEvent is one key press or release with the modifier set active at the
// time of the event. Usage is a USB HID keyboard usage ID.
type KeyEvent struct {
	Usage     byte
	Down      bool
	Modifiers byte
}

// MouseEvent is one pointer event. For MouseMoveAbs, X and Y are absolute in
// 0..32767; for MouseMoveRel they are deltas. Button is valid for
// MouseBtnDown/MouseBtnUp, Wheel for MouseScroll.
type MouseEvent struct {
	Kind   MouseKind
	X      int16
	Y      int16
	Button MouseButton
	Wheel  int8
}

// ConsumerEvent is a media-key event on the consumer control usage page. A
// zero usage releases the active key; at most one usage is active at a time.
type ConsumerEvent struct {
	Usage uint16
}

// Common consumer usages.
const (
	ConsumerMute       uint16 = 0x00e2
	ConsumerVolumeUp   uint16 = 0x00e9
	ConsumerVolumeDown uint16 = 0x00ea
	ConsumerPlayPause  uint16 = 0x00cd
	ConsumerScanNext   uint16 = 0x00b5
	ConsumerScanPrev   uint16 = 0x00b6
	ConsumerStop       uint16 = 0x00b7
)
