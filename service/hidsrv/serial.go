// SPDX-License-Identifier: BSD-3-Clause

package hidsrv

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/one-kvm/one-kvm/pkg/hid"
	"github.com/one-kvm/one-kvm/pkg/state"
)

// serialBackend drives a CH9329-class serial-to-USB-HID bridge. Every
// command is acknowledged by the bridge; a non-zero status or a timed-out
// reply counts as a write error toward the failure threshold.
type serialBackend struct {
	portName    string
	baud        int
	readTimeout time.Duration
	logger      *slog.Logger

	threshold int
	window    time.Duration

	machine *state.Machine

	mu        sync.Mutex
	port      serial.Port
	absOK     bool
	failures  int
	firstFail time.Time
	failed    bool
}

func newSerialBackend(port string, baud int, readTimeout time.Duration, logger *slog.Logger, threshold int, window time.Duration) *serialBackend {
	if readTimeout <= 0 {
		readTimeout = 300 * time.Millisecond
	}
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if window <= 0 {
		window = DefaultFailureWindow
	}
	return &serialBackend{
		portName:    port,
		baud:        baud,
		readTimeout: readTimeout,
		logger:      logger,
		threshold:   threshold,
		window:      window,
		machine:     state.NewBackendMachine("hid-ch9329"),
	}
}

func (b *serialBackend) init(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	port, err := serial.Open(b.portName, &serial.Mode{BaudRate: b.baud})
	if err != nil {
		_ = b.machine.Fire(ctx, state.TriggerGiveUp)
		return fmt.Errorf("%w: %w", ErrHidBackendFailed, err)
	}
	_ = port.SetReadTimeout(b.readTimeout)
	b.port = port

	// Capability handshake; an unanswered probe leaves the bridge in
	// relative-only mode rather than failing init.
	if reply, err := b.commandLocked(hid.CH9329CmdInfo, hid.CH9329Info()); err == nil {
		b.absOK = hid.CH9329SupportsAbsolute(reply)
	}

	return b.machine.Fire(ctx, state.TriggerReady)
}

func (b *serialBackend) sendKeyboard(report [hid.KeyboardReportLen]byte) error {
	return b.send(hid.CH9329CmdKeyboard, hid.CH9329Keyboard(report))
}

func (b *serialBackend) sendMouseAbs(buttons byte, x, y uint16, wheel int8) error {
	if !b.supportsAbsolute() {
		return ErrAbsoluteUnsupported
	}
	return b.send(hid.CH9329CmdMouseAbs, hid.CH9329MouseAbs(buttons, x, y, wheel))
}

func (b *serialBackend) sendMouseRel(buttons byte, dx, dy, wheel int8) error {
	return b.send(hid.CH9329CmdMouseRel, hid.CH9329MouseRel(buttons, dx, dy, wheel))
}

func (b *serialBackend) sendConsumer(usage uint16) error {
	return b.send(hid.CH9329CmdMedia, hid.CH9329Media(usage))
}

func (b *serialBackend) supportsAbsolute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.absOK
}

func (b *serialBackend) state() string { return b.machine.State() }

func (b *serialBackend) close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.port != nil {
		err := b.port.Close()
		b.port = nil
		return err
	}
	return nil
}

// resetBridge issues the bridge's own reset command.
func (b *serialBackend) resetBridge() error {
	return b.send(hid.CH9329CmdReset, hid.CH9329Reset())
}

func (b *serialBackend) send(cmd byte, packet []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failed {
		return ErrHidBackendFailed
	}
	if b.port == nil {
		return ErrHidUnavailable
	}

	reply, err := b.commandLocked(cmd, packet)
	if err == nil && hid.CH9329ReplyOK(reply) {
		b.failures = 0
		if b.machine.Is(state.BackendDegraded) {
			_ = b.machine.Fire(context.Background(), state.TriggerReopen)
			_ = b.machine.Fire(context.Background(), state.TriggerRecovered)
		}
		return nil
	}

	now := time.Now()
	if b.failures == 0 || now.Sub(b.firstFail) > b.window {
		b.firstFail = now
		b.failures = 0
	}
	b.failures++
	_ = b.machine.Fire(context.Background(), state.TriggerWriteError)

	if b.failures >= b.threshold {
		b.failed = true
		_ = b.machine.Fire(context.Background(), state.TriggerGiveUp)
		return ErrHidBackendFailed
	}

	if err != nil {
		return err
	}
	return fmt.Errorf("%w: bridge status", ErrHidBackendFailed)
}

func (b *serialBackend) commandLocked(cmd byte, packet []byte) (hid.CH9329Reply, error) {
	if _, err := b.port.Write(packet); err != nil {
		return hid.CH9329Reply{}, err
	}

	buf := make([]byte, 64)
	n, err := b.port.Read(buf)
	if err != nil {
		return hid.CH9329Reply{}, err
	}

	return hid.ParseCH9329Reply(cmd, buf[:n])
}
