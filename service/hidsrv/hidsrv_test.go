// SPDX-License-Identifier: BSD-3-Clause

package hidsrv

import (
	"testing"

	"github.com/one-kvm/one-kvm/pkg/hid"
)

func TestHandleWireInvalidMessage(t *testing.T) {
	svc := New()

	if got := svc.HandleWire([]byte{0x7f}); got != hid.RespInvalid {
		t.Fatalf("got %#x, want RespInvalid", got)
	}
	if got := svc.HandleWire(nil); got != hid.RespInvalid {
		t.Fatalf("empty: got %#x, want RespInvalid", got)
	}
}

func TestHandleWireUnavailableBeforeRun(t *testing.T) {
	svc := New()

	// A well-formed KeyA-down must be answered with "HID unavailable"
	// while no backend is live.
	msg := []byte{0x01, 0x00, 0x04, 0x02}
	if got := svc.HandleWire(msg); got != hid.RespUnavailable {
		t.Fatalf("got %#x, want RespUnavailable", got)
	}
}

func TestSendKeyCodeUnknown(t *testing.T) {
	svc := New()

	if err := svc.SendKeyCode("NotAKey", true, 0); err == nil {
		t.Fatal("unknown key codes must be rejected")
	}
}

func TestSupportsAbsoluteWithoutBackend(t *testing.T) {
	svc := New()
	if svc.SupportsAbsoluteMouse() {
		t.Fatal("no backend, no absolute mouse")
	}
}

func TestStatusReflectsBackendType(t *testing.T) {
	svc := New(WithBackend(BackendSerial), WithSerial("/dev/null", 9600, 0))

	st := svc.Status()
	if st.Backend != "" && st.Backend != string(BackendSerial) {
		t.Fatalf("unexpected backend in status: %q", st.Backend)
	}
}
