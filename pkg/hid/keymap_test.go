// SPDX-License-Identifier: BSD-3-Clause

package hid

import (
	"errors"
	"testing"
)

func TestUsageForCode(t *testing.T) {
	tests := []struct {
		code string
		want byte
	}{
		{"KeyA", 0x04},
		{"KeyZ", 0x1d},
		{"Digit1", 0x1e},
		{"Digit0", 0x27},
		{"Enter", 0x28},
		{"Space", 0x2c},
		{"F12", 0x45},
		{"ArrowUp", 0x52},
		{"NumpadEnter", 0x58},
		{"ControlLeft", 0xe0},
		{"MetaRight", 0xe7},
	}
	for _, tt := range tests {
		got, err := UsageForCode(tt.code)
		if err != nil {
			t.Fatalf("%s: %v", tt.code, err)
		}
		if got != tt.want {
			t.Fatalf("%s: got %#x, want %#x", tt.code, got, tt.want)
		}
	}
}

func TestUsageForCodeUnknown(t *testing.T) {
	if _, err := UsageForCode("NoSuchKey"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("got %v, want ErrUnknownKey", err)
	}
}

func TestModifierBits(t *testing.T) {
	tests := []struct {
		usage byte
		want  byte
	}{
		{0xe0, ModLeftCtrl},
		{0xe1, ModLeftShift},
		{0xe2, ModLeftAlt},
		{0xe3, ModLeftMeta},
		{0xe4, ModRightCtrl},
		{0xe5, ModRightShift},
		{0xe6, ModRightAlt},
		{0xe7, ModRightMeta},
	}
	for _, tt := range tests {
		if got := ModifierBit(tt.usage); got != tt.want {
			t.Fatalf("usage %#x: got %#x, want %#x", tt.usage, got, tt.want)
		}
		if !IsModifier(tt.usage) {
			t.Fatalf("usage %#x should be a modifier", tt.usage)
		}
	}

	if IsModifier(0x04) {
		t.Fatal("KeyA is not a modifier")
	}
}
