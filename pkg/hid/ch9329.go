// SPDX-License-Identifier: BSD-3-Clause

package hid

import "fmt"

// CH9329 serial bridge protocol. Every packet is
// 0x57 0xAB 0x00 CMD LEN <LEN bytes> CHK where CHK is the low byte of the
// sum of all preceding bytes. Replies echo CMD|0x80 with a status payload.
const (
	ch9329Head1 byte = 0x57
	ch9329Head2 byte = 0xab
	ch9329Addr  byte = 0x00

	CH9329CmdInfo     byte = 0x01
	CH9329CmdKeyboard byte = 0x02
	CH9329CmdMedia    byte = 0x03
	CH9329CmdMouseAbs byte = 0x04
	CH9329CmdMouseRel byte = 0x05
	CH9329CmdReset    byte = 0x0f

	ch9329ReplyFlag byte = 0x80
)

// ch9329AbsRange is the coordinate space of the bridge's absolute reports.
const ch9329AbsRange = 4096

// CH9329Packet frames a command with its payload and checksum.
func CH9329Packet(cmd byte, payload []byte) []byte {
	buf := make([]byte, 0, 5+len(payload)+1)
	buf = append(buf, ch9329Head1, ch9329Head2, ch9329Addr, cmd, byte(len(payload)))
	buf = append(buf, payload...)

	var sum byte
	for _, b := range buf {
		sum += b
	}
	return append(buf, sum)
}

// CH9329Keyboard builds the keyboard packet from an 8-byte boot report.
func CH9329Keyboard(report [KeyboardReportLen]byte) []byte {
	return CH9329Packet(CH9329CmdKeyboard, report[:])
}

// CH9329MouseAbs builds the absolute mouse packet. x and y are 0..32767 and
// are rescaled to the bridge's 4096-wide space.
func CH9329MouseAbs(buttons byte, x, y uint16, wheel int8) []byte {
	sx := uint16(uint32(x) * ch9329AbsRange / 32768)
	sy := uint16(uint32(y) * ch9329AbsRange / 32768)
	payload := []byte{
		0x02, // absolute report ID
		buttons,
		byte(sx), byte(sx >> 8),
		byte(sy), byte(sy >> 8),
		byte(wheel),
	}
	return CH9329Packet(CH9329CmdMouseAbs, payload)
}

// CH9329MouseRel builds the relative mouse packet.
func CH9329MouseRel(buttons byte, dx, dy, wheel int8) []byte {
	payload := []byte{
		0x01, // relative report ID
		buttons,
		byte(dx), byte(dy),
		byte(wheel),
	}
	return CH9329Packet(CH9329CmdMouseRel, payload)
}

// CH9329Media builds the consumer-control packet.
func CH9329Media(usage uint16) []byte {
	payload := []byte{
		0x02, // consumer report ID
		byte(usage), byte(usage >> 8),
	}
	return CH9329Packet(CH9329CmdMedia, payload)
}

// CH9329Reset builds the bridge reset packet.
func CH9329Reset() []byte {
	return CH9329Packet(CH9329CmdReset, nil)
}

// CH9329Info builds the handshake packet whose reply advertises bridge
// capabilities.
func CH9329Info() []byte {
	return CH9329Packet(CH9329CmdInfo, nil)
}

// CH9329Reply is a parsed command reply.
type CH9329Reply struct {
	Cmd     byte
	Payload []byte
}

// ParseCH9329Reply validates framing and checksum of a reply to cmd and
// returns its payload. Status replies carry a single byte where zero means
// success.
func ParseCH9329Reply(cmd byte, data []byte) (CH9329Reply, error) {
	if len(data) < 6 {
		return CH9329Reply{}, ErrShortMessage
	}
	if data[0] != ch9329Head1 || data[1] != ch9329Head2 || data[2] != ch9329Addr {
		return CH9329Reply{}, fmt.Errorf("%w: bad header", ErrBadReply)
	}
	if data[3] != cmd|ch9329ReplyFlag {
		return CH9329Reply{}, fmt.Errorf("%w: cmd 0x%02x", ErrBadReply, data[3])
	}

	n := int(data[4])
	if len(data) < 5+n+1 {
		return CH9329Reply{}, ErrShortMessage
	}

	var sum byte
	for _, b := range data[:5+n] {
		sum += b
	}
	if sum != data[5+n] {
		return CH9329Reply{}, ErrBadChecksum
	}

	payload := make([]byte, n)
	copy(payload, data[5:5+n])
	return CH9329Reply{Cmd: cmd, Payload: payload}, nil
}

// CH9329ReplyOK interprets a status reply: payload[0] == 0 means the bridge
// accepted the command.
func CH9329ReplyOK(r CH9329Reply) bool {
	return len(r.Payload) > 0 && r.Payload[0] == 0
}

// CH9329SupportsAbsolute inspects an info-command reply. Bit 0 of the
// capability byte advertises absolute pointer support.
func CH9329SupportsAbsolute(r CH9329Reply) bool {
	return len(r.Payload) >= 2 && r.Payload[1]&0x01 != 0
}
