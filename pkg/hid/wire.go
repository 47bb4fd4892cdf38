// SPDX-License-Identifier: BSD-3-Clause

package hid

import "encoding/binary"

// Wire message tags.
const (
	wireTagKeyboard byte = 0x01
	wireTagMouse    byte = 0x02
)

// Wire message lengths.
const (
	WireKeyboardLen = 4
	WireMouseLen    = 7
)

// Wire response codes, sent back as a single byte.
const (
	RespOK          byte = 0x00
	RespUnavailable byte = 0x01
	RespInvalid     byte = 0x02
)

// Event is the decoded form of a wire message: exactly one of Key or Mouse
// is set.
type Event struct {
	Key   *KeyEvent
	Mouse *MouseEvent
}

// ParseMessage decodes one binary HID message from the data channel or the
// input WebSocket. The format is little-endian where multi-byte.
func ParseMessage(data []byte) (Event, error) {
	if len(data) == 0 {
		return Event{}, ErrShortMessage
	}

	switch data[0] {
	case wireTagKeyboard:
		if len(data) < WireKeyboardLen {
			return Event{}, ErrShortMessage
		}
		var down bool
		switch data[1] {
		case 0x00:
			down = true
		case 0x01:
			down = false
		default:
			return Event{}, ErrUnknownMessage
		}
		return Event{Key: &KeyEvent{
			Usage:     data[2],
			Down:      down,
			Modifiers: data[3],
		}}, nil

	case wireTagMouse:
		if len(data) < WireMouseLen {
			return Event{}, ErrShortMessage
		}
		kind := MouseKind(data[1])
		if kind > MouseScroll {
			return Event{}, ErrUnknownMessage
		}
		ev := &MouseEvent{
			Kind: kind,
			X:    int16(binary.LittleEndian.Uint16(data[2:4])),
			Y:    int16(binary.LittleEndian.Uint16(data[4:6])),
		}
		switch kind {
		case MouseBtnDown, MouseBtnUp:
			ev.Button = MouseButton(data[6])
		case MouseScroll:
			ev.Wheel = int8(data[6])
		}
		return Event{Mouse: ev}, nil

	default:
		return Event{}, ErrUnknownMessage
	}
}

// EncodeKeyboard builds the 4-byte keyboard wire message.
func EncodeKeyboard(ev KeyEvent) []byte {
	kind := byte(0x01)
	if ev.Down {
		kind = 0x00
	}
	return []byte{wireTagKeyboard, kind, ev.Usage, ev.Modifiers}
}

// EncodeMouse builds the 7-byte mouse wire message.
func EncodeMouse(ev MouseEvent) []byte {
	buf := make([]byte, WireMouseLen)
	buf[0] = wireTagMouse
	buf[1] = byte(ev.Kind)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(ev.X))
	binary.LittleEndian.PutUint16(buf[4:6], uint16(ev.Y))
	switch ev.Kind {
	case MouseBtnDown, MouseBtnUp:
		buf[6] = byte(ev.Button)
	case MouseScroll:
		buf[6] = byte(ev.Wheel)
	}
	return buf
}
