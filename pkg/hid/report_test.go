// SPDX-License-Identifier: BSD-3-Clause

package hid

import "testing"

func TestKeyboardReportPressRelease(t *testing.T) {
	var st KeyboardState

	st.Press(0x04) // A
	got := st.Report()
	want := [8]byte{0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00}
	if got != want {
		t.Fatalf("press: got % x, want % x", got, want)
	}

	st.Release(0x04)
	if got := st.Report(); got != [8]byte{} {
		t.Fatalf("release: got % x, want all zero", got)
	}
	if !st.Idle() {
		t.Fatal("state should be idle after symmetric press/release")
	}
}

func TestKeyboardReportMirrorBaseline(t *testing.T) {
	var st KeyboardState

	// Arbitrary press/release storm must return to the modifier-only
	// baseline once every press has a matching release.
	usages := []byte{0x04, 0x05, 0x06, 0x07, 0x08}
	st.SetModifiers(ModLeftCtrl)
	for _, u := range usages {
		st.Press(u)
	}
	for _, u := range usages {
		st.Release(u)
	}

	got := st.Report()
	want := [8]byte{ModLeftCtrl}
	if got != want {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestKeyboardRollOver(t *testing.T) {
	var st KeyboardState
	st.SetModifiers(ModLeftShift)

	for u := byte(0x04); u < 0x0b; u++ { // seven keys
		st.Press(u)
	}

	got := st.Report()
	if got[0] != ModLeftShift {
		t.Fatalf("modifiers must survive roll-over, got %#x", got[0])
	}
	for i := 2; i < 8; i++ {
		if got[i] != 0x01 {
			t.Fatalf("slot %d: got %#x, want ErrorRollOver", i, got[i])
		}
	}

	// Dropping back to six held keys leaves roll-over.
	st.Release(0x0a)
	got = st.Report()
	for i := 2; i < 8; i++ {
		if got[i] == 0x01 {
			t.Fatalf("slot %d still in roll-over after release", i)
		}
	}
}

func TestMouseAbsReportBytes(t *testing.T) {
	// Click at x=0.25, y=0.5 of the 0..32767 space.
	got := MouseAbsReport(0, 8191, 16383, 0)
	want := [6]byte{0x00, 0xff, 0x1f, 0xff, 0x3f, 0x00}
	if got != want {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestMouseAbsReportCorners(t *testing.T) {
	if got := MouseAbsReport(0, 0, 0, 0); got != [6]byte{} {
		t.Fatalf("origin: got % x", got)
	}
	got := MouseAbsReport(0, 32767, 32767, 0)
	want := [6]byte{0x00, 0xff, 0x7f, 0xff, 0x7f, 0x00}
	if got != want {
		t.Fatalf("far corner: got % x, want % x", got, want)
	}
	got = MouseAbsReport(0, 16383, 16383, 0)
	want = [6]byte{0x00, 0xff, 0x3f, 0xff, 0x3f, 0x00}
	if got != want {
		t.Fatalf("center: got % x, want % x", got, want)
	}
}

func TestButtonBits(t *testing.T) {
	tests := []struct {
		b    MouseButton
		want byte
	}{
		{ButtonLeft, 0x01},
		{ButtonMiddle, 0x04},
		{ButtonRight, 0x02},
		{ButtonBack, 0x08},
		{ButtonForward, 0x10},
	}
	for _, tt := range tests {
		if got := ButtonBit(tt.b); got != tt.want {
			t.Fatalf("button %d: got %#x, want %#x", tt.b, got, tt.want)
		}
	}
}
