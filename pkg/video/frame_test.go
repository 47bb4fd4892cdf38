// SPDX-License-Identifier: BSD-3-Clause

package video

import (
	"testing"
	"time"
)

func TestFrameRefCounting(t *testing.T) {
	released := false
	f := NewFrame(make([]byte, 16), FormatYUYV, Resolution{4, 2}, 8, 1, time.Now(), true, func([]byte) {
		released = true
	})

	f.Retain()
	f.Release()
	if released {
		t.Fatal("buffer released while a reference remains")
	}

	f.Release()
	if !released {
		t.Fatal("buffer not released after final reference dropped")
	}
}

func TestFrameHashCached(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	f := NewFrame(buf, FormatGrey, Resolution{2, 2}, 2, 1, time.Now(), true, nil)

	h1 := f.Hash()
	h2 := f.Hash()
	if h1 != h2 || h1 == 0 {
		t.Fatalf("hash not stable: %#x vs %#x", h1, h2)
	}

	other := NewFrame([]byte{4, 3, 2, 1}, FormatGrey, Resolution{2, 2}, 2, 2, time.Now(), true, nil)
	if other.Hash() == h1 {
		t.Fatal("different payloads must hash differently")
	}
}

func TestFrameSequenceOrdering(t *testing.T) {
	t0 := time.Now()
	f1 := NewFrame(nil, FormatGrey, Resolution{1, 1}, 1, 1, t0, true, nil)
	f2 := NewFrame(nil, FormatGrey, Resolution{1, 1}, 1, 2, t0.Add(33*time.Millisecond), true, nil)

	if f1.Sequence() >= f2.Sequence() {
		t.Fatal("sequence numbers must increase")
	}
	if f2.Timestamp().Before(f1.Timestamp()) {
		t.Fatal("timestamps must not regress")
	}
}
