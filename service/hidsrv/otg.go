// SPDX-License-Identifier: BSD-3-Clause

//go:build linux
// +build linux

package hidsrv

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/one-kvm/one-kvm/pkg/hid"
	"github.com/one-kvm/one-kvm/pkg/state"
	"github.com/one-kvm/one-kvm/service/otgsrv"
)

// backoffSchedule paces device reopen attempts after a write error.
var backoffSchedule = []time.Duration{
	20 * time.Millisecond,
	100 * time.Millisecond,
	500 * time.Millisecond,
	2 * time.Second,
}

// gadgetDevice is one /dev/hidgN with its last-report mirror. A write error
// degrades the device: it is closed, reopened after a growing backoff and
// the mirrored report resent so the target never misses a release.
type gadgetDevice struct {
	path string

	mu        sync.Mutex
	f         *os.File
	mirror    []byte
	backoff   int
	failures  int
	firstFail time.Time
	failed    bool
}

func (d *gadgetDevice) open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.openLocked()
}

func (d *gadgetDevice) openLocked() error {
	if d.f != nil {
		return nil
	}
	f, err := os.OpenFile(d.path, os.O_RDWR|syscall.O_NONBLOCK, 0)
	if err != nil {
		return err
	}
	d.f = f
	return nil
}

func (d *gadgetDevice) closeLocked() {
	if d.f != nil {
		_ = d.f.Close()
		d.f = nil
	}
}

// write sends one report, recovering per the backoff policy on transient
// errors. After failureThreshold consecutive failures inside failureWindow
// the device declares itself failed until reinitialized.
func (d *gadgetDevice) write(report []byte, threshold int, window time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failed {
		return ErrHidBackendFailed
	}

	d.mirror = append(d.mirror[:0], report...)

	for {
		if err := d.openLocked(); err != nil {
			if d.fail(threshold, window) {
				return ErrHidBackendFailed
			}
			d.sleepBackoff()
			continue
		}

		_, err := d.f.Write(report)
		if err == nil {
			d.failures = 0
			d.backoff = 0
			return nil
		}

		if !transientWriteError(err) {
			return err
		}

		d.closeLocked()
		if d.fail(threshold, window) {
			return ErrHidBackendFailed
		}
		d.sleepBackoff()
	}
}

func (d *gadgetDevice) fail(threshold int, window time.Duration) bool {
	now := time.Now()
	if d.failures == 0 || now.Sub(d.firstFail) > window {
		d.firstFail = now
		d.failures = 0
	}
	d.failures++
	if d.failures >= threshold {
		d.failed = true
		return true
	}
	return false
}

func (d *gadgetDevice) sleepBackoff() {
	idx := d.backoff
	if idx >= len(backoffSchedule) {
		idx = len(backoffSchedule) - 1
	}
	d.backoff++
	time.Sleep(backoffSchedule[idx])
}

func (d *gadgetDevice) reinit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failed = false
	d.failures = 0
	d.backoff = 0
	d.closeLocked()
}

func (d *gadgetDevice) isFailed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failed
}

func transientWriteError(err error) bool {
	return errors.Is(err, syscall.ENODEV) ||
		errors.Is(err, syscall.ESHUTDOWN) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EIO)
}

// otgBackend drives the gadget HID functions.
type otgBackend struct {
	otg    *otgsrv.Service
	logger *slog.Logger

	threshold int
	window    time.Duration

	machine *state.Machine

	keyboard *gadgetDevice
	mouseAbs *gadgetDevice
	mouseRel *gadgetDevice
	consumer *gadgetDevice

	handles []otgsrv.HidHandle

	ledCh  chan byte
	stopLed chan struct{}
}

func newOtgBackend(otg *otgsrv.Service, logger *slog.Logger, threshold int, window time.Duration) *otgBackend {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if window <= 0 {
		window = DefaultFailureWindow
	}
	return &otgBackend{
		otg:       otg,
		logger:    logger,
		threshold: threshold,
		window:    window,
		machine:   state.NewBackendMachine("hid-otg"),
		ledCh:     make(chan byte, 4),
		stopLed:   make(chan struct{}),
	}
}

func (b *otgBackend) init(ctx context.Context) error {
	kinds := []struct {
		kind otgsrv.HidKind
		dev  **gadgetDevice
	}{
		{otgsrv.KindKeyboard, &b.keyboard},
		{otgsrv.KindMouseAbs, &b.mouseAbs},
		{otgsrv.KindMouseRel, &b.mouseRel},
		{otgsrv.KindConsumer, &b.consumer},
	}

	for _, k := range kinds {
		h, err := b.otg.RequestHID(ctx, k.kind)
		if err != nil {
			b.release(ctx)
			_ = b.machine.Fire(ctx, state.TriggerGiveUp)
			return err
		}
		b.handles = append(b.handles, h)
		*k.dev = &gadgetDevice{path: h.DevicePath}
	}

	go b.ledLoop()

	return b.machine.Fire(ctx, state.TriggerReady)
}

// ledLoop mirrors the keyboard LED output report (Caps/Num/Scroll) from the
// target. It polls the keyboard device, sleeping 250 ms whenever no device
// is open or a read fails or returns nothing.
func (b *otgBackend) ledLoop() {
	buf := make([]byte, 1)
	for {
		select {
		case <-b.stopLed:
			return
		default:
		}

		b.keyboard.mu.Lock()
		f := b.keyboard.f
		b.keyboard.mu.Unlock()

		if f == nil {
			time.Sleep(250 * time.Millisecond)
			continue
		}

		n, err := f.Read(buf)
		if err != nil || n == 0 {
			time.Sleep(250 * time.Millisecond)
			continue
		}

		select {
		case b.ledCh <- buf[0]:
		default:
		}
	}
}

// leds exposes LED report bytes read from the target.
func (b *otgBackend) leds() <-chan byte {
	return b.ledCh
}

func (b *otgBackend) sendKeyboard(report [hid.KeyboardReportLen]byte) error {
	return b.write(b.keyboard, report[:])
}

func (b *otgBackend) sendMouseAbs(buttons byte, x, y uint16, wheel int8) error {
	report := hid.MouseAbsReport(buttons, x, y, wheel)
	return b.write(b.mouseAbs, report[:])
}

func (b *otgBackend) sendMouseRel(buttons byte, dx, dy, wheel int8) error {
	report := hid.MouseRelReport(buttons, dx, dy, wheel)
	return b.write(b.mouseRel, report[:])
}

func (b *otgBackend) sendConsumer(usage uint16) error {
	report := hid.ConsumerReport(usage)
	return b.write(b.consumer, report[:])
}

func (b *otgBackend) write(d *gadgetDevice, report []byte) error {
	if d == nil {
		return ErrHidUnavailable
	}

	err := d.write(report, b.threshold, b.window)
	switch {
	case err == nil:
		if b.machine.Is(state.BackendDegraded) || b.machine.Is(state.BackendRecovering) {
			_ = b.machine.Fire(context.Background(), state.TriggerReopen)
			_ = b.machine.Fire(context.Background(), state.TriggerRecovered)
		}
		return nil
	case errors.Is(err, ErrHidBackendFailed):
		_ = b.machine.Fire(context.Background(), state.TriggerWriteError)
		_ = b.machine.Fire(context.Background(), state.TriggerGiveUp)
		return err
	default:
		_ = b.machine.Fire(context.Background(), state.TriggerWriteError)
		return err
	}
}

func (b *otgBackend) supportsAbsolute() bool { return true }

func (b *otgBackend) state() string { return b.machine.State() }

func (b *otgBackend) close(ctx context.Context) error {
	close(b.stopLed)
	for _, d := range []*gadgetDevice{b.keyboard, b.mouseAbs, b.mouseRel, b.consumer} {
		if d != nil {
			d.mu.Lock()
			d.closeLocked()
			d.mu.Unlock()
		}
	}
	b.release(ctx)
	return nil
}

// reinitDevices clears failure state after an external re-initialization.
func (b *otgBackend) reinitDevices(ctx context.Context) {
	for _, d := range []*gadgetDevice{b.keyboard, b.mouseAbs, b.mouseRel, b.consumer} {
		if d != nil {
			d.reinit()
		}
	}
	_ = b.machine.Fire(ctx, state.TriggerReinit)
	_ = b.machine.Fire(ctx, state.TriggerReady)
}

func (b *otgBackend) release(ctx context.Context) {
	for _, h := range b.handles {
		_ = b.otg.ReleaseHID(ctx, h)
	}
	b.handles = nil
}
