// SPDX-License-Identifier: BSD-3-Clause

package hid

import (
	"bytes"
	"errors"
	"testing"
)

func TestCH9329PacketFraming(t *testing.T) {
	pkt := CH9329Packet(CH9329CmdReset, nil)
	want := []byte{0x57, 0xab, 0x00, 0x0f, 0x00, 0x11}
	if !bytes.Equal(pkt, want) {
		t.Fatalf("got % x, want % x", pkt, want)
	}
}

func TestCH9329KeyboardPacket(t *testing.T) {
	var report [8]byte
	report[0] = ModLeftShift
	report[2] = 0x04

	pkt := CH9329Keyboard(report)

	if pkt[3] != CH9329CmdKeyboard || pkt[4] != 8 {
		t.Fatalf("bad header: % x", pkt[:5])
	}
	if !bytes.Equal(pkt[5:13], report[:]) {
		t.Fatalf("payload: got % x, want % x", pkt[5:13], report[:])
	}

	var sum byte
	for _, b := range pkt[:len(pkt)-1] {
		sum += b
	}
	if pkt[len(pkt)-1] != sum {
		t.Fatalf("checksum: got %#x, want %#x", pkt[len(pkt)-1], sum)
	}
}

func TestCH9329MouseAbsScaling(t *testing.T) {
	pkt := CH9329MouseAbs(0x01, 32767, 16383, 0)

	// Payload: id, buttons, X lo/hi, Y lo/hi, wheel. Coordinates are
	// rescaled from 0..32767 into the bridge's 4096 space.
	payload := pkt[5 : 5+7]
	if payload[0] != 0x02 || payload[1] != 0x01 {
		t.Fatalf("header: % x", payload[:2])
	}
	x := uint16(payload[2]) | uint16(payload[3])<<8
	y := uint16(payload[4]) | uint16(payload[5])<<8
	if x != 4095 {
		t.Fatalf("x: got %d, want 4095", x)
	}
	if y != 2047 {
		t.Fatalf("y: got %d, want 2047", y)
	}
}

func TestParseCH9329Reply(t *testing.T) {
	reply := []byte{0x57, 0xab, 0x00, 0x82, 0x01, 0x00}
	var sum byte
	for _, b := range reply {
		sum += b
	}
	reply = append(reply, sum)

	r, err := ParseCH9329Reply(CH9329CmdKeyboard, reply)
	if err != nil {
		t.Fatalf("ParseCH9329Reply: %v", err)
	}
	if !CH9329ReplyOK(r) {
		t.Fatal("status 0 should be OK")
	}
}

func TestParseCH9329ReplyBadChecksum(t *testing.T) {
	reply := []byte{0x57, 0xab, 0x00, 0x82, 0x01, 0x00, 0xff}
	if _, err := ParseCH9329Reply(CH9329CmdKeyboard, reply); !errors.Is(err, ErrBadChecksum) {
		t.Fatalf("got %v, want ErrBadChecksum", err)
	}
}

func TestParseCH9329ReplyWrongCmd(t *testing.T) {
	reply := []byte{0x57, 0xab, 0x00, 0x85, 0x01, 0x00}
	var sum byte
	for _, b := range reply {
		sum += b
	}
	reply = append(reply, sum)

	if _, err := ParseCH9329Reply(CH9329CmdKeyboard, reply); !errors.Is(err, ErrBadReply) {
		t.Fatalf("got %v, want ErrBadReply", err)
	}
}
