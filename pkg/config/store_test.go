// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"path/filepath"
	"testing"
)

func openStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(filepath.Join(dir, "config.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetReturnsDefaultWhenUnset(t *testing.T) {
	s := openStore(t, t.TempDir())

	v, err := Get(s, SectionVideo, DefaultVideo())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.Device != "/dev/video0" || v.FPS != 30 {
		t.Fatalf("unexpected defaults: %+v", v)
	}
}

func TestPatchPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)

	_, err := Patch(s, SectionVideo, DefaultVideo(), func(v *Video) {
		v.Device = "/dev/video2"
		v.FPS = 60
	})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	_ = s.Close()

	s2 := openStore(t, dir)
	v, err := Get(s2, SectionVideo, DefaultVideo())
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if v.Device != "/dev/video2" || v.FPS != 60 {
		t.Fatalf("patch lost: %+v", v)
	}
}

func TestPatchLeavesOtherSectionsAlone(t *testing.T) {
	s := openStore(t, t.TempDir())

	if _, err := Patch(s, SectionHid, DefaultHid(), func(h *Hid) {
		h.Backend = "ch9329"
	}); err != nil {
		t.Fatalf("Patch hid: %v", err)
	}

	v, err := Get(s, SectionVideo, DefaultVideo())
	if err != nil {
		t.Fatalf("Get video: %v", err)
	}
	if v.Device != "/dev/video0" {
		t.Fatalf("video section disturbed: %+v", v)
	}

	h, err := Get(s, SectionHid, DefaultHid())
	if err != nil {
		t.Fatalf("Get hid: %v", err)
	}
	if h.Backend != "ch9329" {
		t.Fatalf("hid patch lost: %+v", h)
	}
}
