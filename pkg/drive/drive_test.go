// SPDX-License-Identifier: BSD-3-Clause

package drive

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func newDrive(t *testing.T) *Drive {
	t.Helper()
	d := New(filepath.Join(t.TempDir(), "drive.img"))
	if err := d.Init(64); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return d
}

func TestInitCreatesImage(t *testing.T) {
	d := newDrive(t)
	if !d.Exists() {
		t.Fatal("image missing after Init")
	}

	info, err := d.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Size != 64*1024*1024 {
		t.Fatalf("size: got %d", info.Size)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	d := newDrive(t)

	payload := "hello from the host"
	if err := d.WriteFile("/notes.txt", strings.NewReader(payload)); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	entries, err := d.List("/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := false
	for _, e := range entries {
		if strings.EqualFold(e.Name, "notes.txt") && !e.Dir {
			found = true
		}
	}
	if !found {
		t.Fatalf("notes.txt not listed: %+v", entries)
	}

	var buf bytes.Buffer
	if err := d.ReadFile("/notes.txt", &buf); err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if buf.String() != payload {
		t.Fatalf("content: got %q, want %q", buf.String(), payload)
	}
}

func TestAttachedRefusesWrites(t *testing.T) {
	d := newDrive(t)

	if err := d.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer d.Detach()

	err := d.WriteFile("/x.txt", strings.NewReader("x"))
	if !errors.Is(err, ErrAttached) {
		t.Fatalf("got %v, want ErrAttached", err)
	}
	if err := d.Mkdir("/dir"); !errors.Is(err, ErrAttached) {
		t.Fatalf("mkdir: got %v, want ErrAttached", err)
	}

	// Reads still work, served from the frozen snapshot.
	if _, err := d.List("/"); err != nil {
		t.Fatalf("List while attached: %v", err)
	}
}

func TestAttachDetachIdempotent(t *testing.T) {
	d := newDrive(t)

	if err := d.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := d.Attach(); err != nil {
		t.Fatalf("second Attach: %v", err)
	}

	d.Detach()
	d.Detach()

	if d.Attached() {
		t.Fatal("still attached after Detach")
	}
}

func TestInitRefusedWhileAttached(t *testing.T) {
	d := newDrive(t)
	if err := d.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer d.Detach()

	if err := d.Init(64); !errors.Is(err, ErrAttached) {
		t.Fatalf("got %v, want ErrAttached", err)
	}
}
