// SPDX-License-Identifier: BSD-3-Clause

package hid

import "errors"

var (
	// ErrShortMessage indicates a wire message was truncated.
	ErrShortMessage = errors.New("HID message too short")

	// ErrUnknownMessage indicates an unrecognized wire message tag or kind.
	ErrUnknownMessage = errors.New("unknown HID message")

	// ErrUnknownKey indicates a key code with no usage table entry.
	ErrUnknownKey = errors.New("unknown key code")

	// ErrBadChecksum indicates a CH9329 packet failed checksum verification.
	ErrBadChecksum = errors.New("bad CH9329 checksum")

	// ErrBadReply indicates a malformed or failed CH9329 command reply.
	ErrBadReply = errors.New("bad CH9329 reply")
)
