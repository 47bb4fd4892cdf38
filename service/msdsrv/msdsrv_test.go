// SPDX-License-Identifier: BSD-3-Clause

package msdsrv

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/one-kvm/one-kvm/pkg/bus"
	"github.com/one-kvm/one-kvm/service/ipc"
	"github.com/one-kvm/one-kvm/service/otgsrv"
)

func startOtg(t *testing.T) *otgsrv.Service {
	t.Helper()

	root := t.TempDir()
	configfs := filepath.Join(root, "usb_gadget")
	udcRoot := filepath.Join(root, "udc")
	devRoot := filepath.Join(root, "dev")

	for _, dir := range []string{configfs, filepath.Join(udcRoot, "dummy.usb"), devRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(udcRoot, "dummy.usb", "state"), []byte("configured\n"), 0o644); err != nil {
		t.Fatalf("udc state: %v", err)
	}

	svc := otgsrv.New(
		otgsrv.WithRoots(configfs, udcRoot, devRoot),
		otgsrv.WithBindTimeout(time.Second),
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = svc.Run(ctx, nil) }()

	readyCtx, readyCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer readyCancel()
	if err := svc.WaitReady(readyCtx); err != nil {
		t.Fatalf("otg not ready: %v", err)
	}
	return svc
}

func startMsd(t *testing.T, withBus bool) (*Service, *bus.Subscription) {
	t.Helper()

	otg := startOtg(t)
	dataDir := t.TempDir()

	svc := New(
		WithDataDir(dataDir),
		WithDriveSize(64),
		WithOtgService(otg),
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var sub *bus.Subscription
	if withBus {
		ipcSvc := ipc.New()
		go func() { _ = ipcSvc.Run(ctx, nil) }()
		provider := ipcSvc.GetConnProvider()

		events, err := bus.Connect(provider)
		if err != nil {
			t.Fatalf("bus connect: %v", err)
		}
		t.Cleanup(events.Close)

		sub, err = events.Subscribe(64)
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
		t.Cleanup(sub.Unsubscribe)

		go func() { _ = svc.Run(ctx, provider) }()
	} else {
		go func() { _ = svc.Run(ctx, nil) }()
	}

	// Wait for the catalog to come up.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := svc.ListImages(); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("msd service did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	return svc, sub
}

func TestUploadListDelete(t *testing.T) {
	svc, _ := startMsd(t, false)

	img, err := svc.Upload("boot.iso", true, strings.NewReader("not really an iso"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if img.Size != int64(len("not really an iso")) || img.SHA256 == "" {
		t.Fatalf("metadata: %+v", img)
	}

	images, err := svc.ListImages()
	if err != nil || len(images) != 1 {
		t.Fatalf("ListImages: %v %v", images, err)
	}

	if err := svc.DeleteImage(img.ID); err != nil {
		t.Fatalf("DeleteImage: %v", err)
	}
	images, _ = svc.ListImages()
	if len(images) != 0 {
		t.Fatal("image not removed from catalog")
	}
}

func TestConnectPassesThroughNone(t *testing.T) {
	svc, sub := startMsd(t, true)
	ctx := context.Background()

	img, err := svc.Upload("disk", false, strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := svc.Connect(ctx, Target{Drive: true}); err != nil {
		t.Fatalf("Connect drive: %v", err)
	}
	if svc.Current().Kind != ConnDrive {
		t.Fatalf("state: %+v", svc.Current())
	}

	// Connecting an image with no explicit disconnect must hop through
	// the disconnected state.
	if err := svc.Connect(ctx, Target{ImageID: img.ID, CDROM: true, RO: true}); err != nil {
		t.Fatalf("Connect image: %v", err)
	}
	cur := svc.Current()
	if cur.Kind != ConnImage || cur.ImageID != img.ID || !cur.CDROM {
		t.Fatalf("state: %+v", cur)
	}

	var seq []string
	deadline := time.After(5 * time.Second)
	for len(seq) < 3 {
		select {
		case ev := <-sub.Events():
			if ev.Type == bus.EventMsdStateChanged && !ev.Msd.Ejected {
				seq = append(seq, ev.Msd.Connection)
			}
		case <-deadline:
			t.Fatalf("timed out collecting events, got %v", seq)
		}
	}

	want := []string{"drive", "none", "image"}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("event sequence: got %v, want %v", seq, want)
		}
	}

	if err := svc.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
}

func TestDeleteConnectedImageRefused(t *testing.T) {
	svc, _ := startMsd(t, false)
	ctx := context.Background()

	img, err := svc.Upload("disk", false, strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := svc.Connect(ctx, Target{ImageID: img.ID}); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := svc.DeleteImage(img.ID); !errors.Is(err, ErrImageConnected) {
		t.Fatalf("got %v, want ErrImageConnected", err)
	}

	if err := svc.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if err := svc.DeleteImage(img.ID); err != nil {
		t.Fatalf("delete after disconnect: %v", err)
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	svc, _ := startMsd(t, false)
	ctx := context.Background()

	if err := svc.Disconnect(ctx); err != nil {
		t.Fatalf("first Disconnect: %v", err)
	}
	if err := svc.Disconnect(ctx); err != nil {
		t.Fatalf("second Disconnect: %v", err)
	}
}

func TestConnectMissingImage(t *testing.T) {
	svc, _ := startMsd(t, false)

	err := svc.Connect(context.Background(), Target{ImageID: "no-such-id"})
	if !errors.Is(err, ErrImageMissing) {
		t.Fatalf("got %v, want ErrImageMissing", err)
	}
}

func TestUploadIsHashStable(t *testing.T) {
	svc, _ := startMsd(t, false)

	payload := bytes.Repeat([]byte{0xab}, 1024)
	img, err := svc.Upload("blob", false, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	img2, err := svc.Upload("blob2", false, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Upload 2: %v", err)
	}

	if img.SHA256 != img2.SHA256 {
		t.Fatal("identical payloads must hash identically")
	}
	if img.ID == img2.ID {
		t.Fatal("every upload gets its own ID")
	}
}
