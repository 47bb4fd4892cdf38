// SPDX-License-Identifier: BSD-3-Clause

package hid

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseKeyboardMessage(t *testing.T) {
	// KeyA down with LShift held.
	msg := []byte{0x01, 0x00, 0x04, 0x02}

	ev, err := ParseMessage(msg)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if ev.Key == nil {
		t.Fatal("expected keyboard event")
	}
	if !ev.Key.Down || ev.Key.Usage != 0x04 || ev.Key.Modifiers != ModLeftShift {
		t.Fatalf("unexpected event: %+v", ev.Key)
	}
}

func TestParseMouseMessages(t *testing.T) {
	tests := []struct {
		name string
		msg  []byte
		want MouseEvent
	}{
		{
			name: "move_abs",
			msg:  []byte{0x02, 0x01, 0xff, 0x1f, 0xff, 0x3f, 0x00},
			want: MouseEvent{Kind: MouseMoveAbs, X: 8191, Y: 16383},
		},
		{
			name: "move_rel_negative",
			msg:  []byte{0x02, 0x00, 0xfb, 0xff, 0x05, 0x00, 0x00},
			want: MouseEvent{Kind: MouseMoveRel, X: -5, Y: 5},
		},
		{
			name: "btn_down_right",
			msg:  []byte{0x02, 0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
			want: MouseEvent{Kind: MouseBtnDown, Button: ButtonRight},
		},
		{
			name: "scroll_up",
			msg:  []byte{0x02, 0x04, 0x00, 0x00, 0x00, 0x00, 0x01},
			want: MouseEvent{Kind: MouseScroll, Wheel: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseMessage(tt.msg)
			if err != nil {
				t.Fatalf("ParseMessage: %v", err)
			}
			if ev.Mouse == nil {
				t.Fatal("expected mouse event")
			}
			if *ev.Mouse != tt.want {
				t.Fatalf("got %+v, want %+v", *ev.Mouse, tt.want)
			}
		})
	}
}

func TestParseMessageErrors(t *testing.T) {
	tests := []struct {
		name string
		msg  []byte
		want error
	}{
		{"empty", nil, ErrShortMessage},
		{"short keyboard", []byte{0x01, 0x00}, ErrShortMessage},
		{"short mouse", []byte{0x02, 0x01, 0x00}, ErrShortMessage},
		{"unknown tag", []byte{0x7f, 0x00, 0x00, 0x00}, ErrUnknownMessage},
		{"bad keyboard kind", []byte{0x01, 0x05, 0x04, 0x00}, ErrUnknownMessage},
		{"bad mouse kind", []byte{0x02, 0x09, 0, 0, 0, 0, 0}, ErrUnknownMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMessage(tt.msg); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWireRoundTrip(t *testing.T) {
	keys := []KeyEvent{
		{Usage: 0x04, Down: true, Modifiers: 0},
		{Usage: 0x29, Down: false, Modifiers: ModLeftCtrl | ModRightMeta},
	}
	for _, ev := range keys {
		parsed, err := ParseMessage(EncodeKeyboard(ev))
		if err != nil {
			t.Fatalf("round trip: %v", err)
		}
		if *parsed.Key != ev {
			t.Fatalf("got %+v, want %+v", *parsed.Key, ev)
		}
	}

	mice := []MouseEvent{
		{Kind: MouseMoveAbs, X: 32767, Y: 0},
		{Kind: MouseMoveRel, X: -120, Y: 7},
		{Kind: MouseBtnDown, Button: ButtonForward},
		{Kind: MouseBtnUp, Button: ButtonLeft},
		{Kind: MouseScroll, Wheel: -3},
	}
	for _, ev := range mice {
		parsed, err := ParseMessage(EncodeMouse(ev))
		if err != nil {
			t.Fatalf("round trip: %v", err)
		}
		if *parsed.Mouse != ev {
			t.Fatalf("got %+v, want %+v", *parsed.Mouse, ev)
		}
	}
}

func TestEncodeKeyboardBytes(t *testing.T) {
	got := EncodeKeyboard(KeyEvent{Usage: 0x04, Down: true, Modifiers: ModLeftShift})
	want := []byte{0x01, 0x00, 0x04, 0x02}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}
