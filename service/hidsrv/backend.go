// SPDX-License-Identifier: BSD-3-Clause

package hidsrv

import (
	"context"

	"github.com/one-kvm/one-kvm/pkg/hid"
)

// backend is the closed set of HID output paths. Implementations own their
// device handles; the controller's worker goroutine is the only caller of
// the send methods, so implementations need no internal queuing.
type backend interface {
	// init opens the backend's devices.
	init(ctx context.Context) error

	// sendKeyboard writes an 8-byte boot keyboard report.
	sendKeyboard(report [hid.KeyboardReportLen]byte) error

	// sendMouseAbs writes an absolute pointer report; x, y in 0..32767.
	sendMouseAbs(buttons byte, x, y uint16, wheel int8) error

	// sendMouseRel writes a relative mouse report.
	sendMouseRel(buttons byte, dx, dy, wheel int8) error

	// sendConsumer writes a consumer usage report; zero releases.
	sendConsumer(usage uint16) error

	// supportsAbsolute reports whether sendMouseAbs works on this backend.
	supportsAbsolute() bool

	// state returns the health machine state string.
	state() string

	// close releases all devices.
	close(ctx context.Context) error
}

// noneBackend rejects every report with ErrHidUnavailable. Used when input
// is disabled.
type noneBackend struct{}

func (noneBackend) init(ctx context.Context) error { return nil }

func (noneBackend) sendKeyboard([hid.KeyboardReportLen]byte) error { return ErrHidUnavailable }

func (noneBackend) sendMouseAbs(byte, uint16, uint16, int8) error { return ErrHidUnavailable }

func (noneBackend) sendMouseRel(byte, int8, int8, int8) error { return ErrHidUnavailable }

func (noneBackend) sendConsumer(uint16) error { return ErrHidUnavailable }

func (noneBackend) supportsAbsolute() bool { return false }

func (noneBackend) state() string { return "disabled" }

func (noneBackend) close(ctx context.Context) error { return nil }
