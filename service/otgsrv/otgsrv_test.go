// SPDX-License-Identifier: BSD-3-Clause

package otgsrv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// startService runs an OTG service against a scratch directory standing in
// for configfs, with one fake UDC that always reports configured.
func startService(t *testing.T, opts ...Option) *Service {
	t.Helper()

	root := t.TempDir()
	configfs := filepath.Join(root, "usb_gadget")
	udcRoot := filepath.Join(root, "udc")
	devRoot := filepath.Join(root, "dev")

	for _, dir := range []string{configfs, filepath.Join(udcRoot, "fe980000.usb"), devRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	if err := os.WriteFile(filepath.Join(udcRoot, "fe980000.usb", "state"), []byte("configured\n"), 0o644); err != nil {
		t.Fatalf("write udc state: %v", err)
	}

	opts = append([]Option{
		WithRoots(configfs, udcRoot, devRoot),
		WithBindTimeout(time.Second),
	}, opts...)

	svc := New(opts...)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = svc.Run(ctx, nil) }()

	readyCtx, readyCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer readyCancel()
	if err := svc.WaitReady(readyCtx); err != nil {
		t.Fatalf("service not ready: %v", err)
	}

	return svc
}

func TestRequestAndReleaseHID(t *testing.T) {
	svc := startService(t)
	ctx := context.Background()

	h, err := svc.RequestHID(ctx, KindKeyboard)
	if err != nil {
		t.Fatalf("RequestHID: %v", err)
	}
	if h.Kind != KindKeyboard {
		t.Fatalf("kind: %v", h.Kind)
	}

	st := svc.Status()
	if !st.Bound || st.EndpointsUsed == 0 {
		t.Fatalf("unexpected status after request: %+v", st)
	}

	if err := svc.ReleaseHID(ctx, h); err != nil {
		t.Fatalf("ReleaseHID: %v", err)
	}
	// Releasing twice is a no-op.
	if err := svc.ReleaseHID(ctx, h); err != nil {
		t.Fatalf("second ReleaseHID: %v", err)
	}

	if got := svc.Status().EndpointsUsed; got != 0 {
		t.Fatalf("endpoints leaked: %d", got)
	}
}

func TestEndpointBudgetRefusal(t *testing.T) {
	svc := startService(t, WithEndpointCap(2))
	ctx := context.Background()

	if _, err := svc.RequestHID(ctx, KindKeyboard); err != nil {
		t.Fatalf("keyboard: %v", err)
	}
	if _, err := svc.RequestHID(ctx, KindMouseAbs); err != nil {
		t.Fatalf("mouse: %v", err)
	}

	_, err := svc.RequestHID(ctx, KindConsumer)
	if !errors.Is(err, ErrGadgetEndpointExhausted) {
		t.Fatalf("got %v, want ErrGadgetEndpointExhausted", err)
	}
}

func TestAttachDetachMSD(t *testing.T) {
	svc := startService(t)
	ctx := context.Background()

	backing := filepath.Join(t.TempDir(), "image.img")
	if err := os.WriteFile(backing, make([]byte, 4096), 0o644); err != nil {
		t.Fatalf("backing: %v", err)
	}

	h, err := svc.AttachMSD(ctx, backing, true, true)
	if err != nil {
		t.Fatalf("AttachMSD: %v", err)
	}

	got, err := svc.MSDBacking()
	if err != nil {
		t.Fatalf("MSDBacking: %v", err)
	}
	if got != backing {
		t.Fatalf("backing: got %q, want %q", got, backing)
	}

	// A second attach without detach is refused.
	if _, err := svc.AttachMSD(ctx, backing, false, false); !errors.Is(err, ErrMsdBusy) {
		t.Fatalf("got %v, want ErrMsdBusy", err)
	}

	if err := svc.DetachMSD(ctx, h); err != nil {
		t.Fatalf("DetachMSD: %v", err)
	}
	// Detaching twice is a no-op.
	if err := svc.DetachMSD(ctx, h); err != nil {
		t.Fatalf("second DetachMSD: %v", err)
	}
}

func TestRebindKeepsFunctions(t *testing.T) {
	svc := startService(t)
	ctx := context.Background()

	if _, err := svc.RequestHID(ctx, KindKeyboard); err != nil {
		t.Fatalf("RequestHID: %v", err)
	}

	genBefore := svc.Status().Generation
	if err := svc.Rebind(ctx); err != nil {
		t.Fatalf("Rebind: %v", err)
	}

	st := svc.Status()
	if st.Generation <= genBefore {
		t.Fatal("generation must advance on rebind")
	}
	if st.EndpointsUsed == 0 {
		t.Fatal("functions lost across rebind")
	}
}
