// SPDX-License-Identifier: BSD-3-Clause

package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFanOut(t *testing.T) {
	b := New[int](8)
	r1 := b.Subscribe()
	r2 := b.Subscribe()

	b.Publish(42)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for _, r := range []*Receiver[int]{r1, r2} {
		v, err := r.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if v != 42 {
			t.Fatalf("got %d, want 42", v)
		}
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	b := New[int](2)
	r := b.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow receiver")
	}

	if r.Dropped() == 0 {
		t.Fatal("expected drops on an unread ring of 2")
	}
}

type fakeFrame struct {
	key bool
	id  int
}

func TestDropPolicyPrefersDeltaFrames(t *testing.T) {
	b := New[fakeFrame](3)
	b.SetDroppable(func(f fakeFrame) bool { return !f.key })
	r := b.Subscribe()

	b.Publish(fakeFrame{key: true, id: 0})
	b.Publish(fakeFrame{key: false, id: 1})
	b.Publish(fakeFrame{key: false, id: 2})
	// Ring full; the delta frame id=1 should be sacrificed, not the key.
	b.Publish(fakeFrame{key: false, id: 3})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	first, err := r.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !first.key {
		t.Fatalf("key frame was dropped; got id=%d", first.id)
	}
}

type refItem struct {
	refs *int32
}

func TestRefCountedFanOut(t *testing.T) {
	var refs int32 = 1

	b := New[refItem](2)
	b.SetRefCounted(
		func(v refItem) refItem {
			*v.refs++
			return v
		},
		func(v refItem) {
			*v.refs--
		},
	)

	r1 := b.Subscribe()
	r2 := b.Subscribe()

	item := refItem{refs: &refs}
	b.Publish(item)

	// One reference per receiver on top of the producer's own.
	if refs != 3 {
		t.Fatalf("refs after publish: got %d, want 3", refs)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, err := r1.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	*got.refs-- // receiver done with its reference

	// A receiver closing with the item still pending releases it.
	r2.Close()

	if refs != 1 {
		t.Fatalf("refs after consume+close: got %d, want 1", refs)
	}
}

func TestRefCountedOverflowReleasesVictim(t *testing.T) {
	var refs int32

	b := New[refItem](2)
	b.SetRefCounted(
		func(v refItem) refItem {
			*v.refs++
			return v
		},
		func(v refItem) {
			*v.refs--
		},
	)

	_ = b.Subscribe()

	shared := refItem{refs: &refs}
	for i := 0; i < 10; i++ {
		b.Publish(shared)
	}

	// Ring of 2: eight overflow victims must have been released, leaving
	// exactly the two pending references.
	if refs != 2 {
		t.Fatalf("refs after overflow: got %d, want 2", refs)
	}
}

func TestCloseUnblocksNext(t *testing.T) {
	b := New[int](2)
	r := b.Subscribe()

	go func() {
		time.Sleep(20 * time.Millisecond)
		r.Close()
	}()

	_, err := r.Next(context.Background())
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("got %v, want ErrClosed", err)
	}

	if b.Len() != 0 {
		t.Fatal("receiver still attached after Close")
	}
}
