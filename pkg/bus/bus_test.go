// SPDX-License-Identifier: BSD-3-Clause

package bus

import (
	"testing"
	"time"
)

func drainOne(t *testing.T, s *Subscription) SystemEvent {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return SystemEvent{}
	}
}

func TestDeliverInOrder(t *testing.T) {
	s := &Subscription{ch: make(chan SystemEvent, 4)}

	for i := 0; i < 3; i++ {
		s.deliver(SystemEvent{Type: EventDeviceInfo, Time: time.Unix(int64(i), 0)})
	}

	for i := 0; i < 3; i++ {
		ev := drainOne(t, s)
		if ev.Time.Unix() != int64(i) {
			t.Fatalf("event %d out of order: %v", i, ev.Time.Unix())
		}
	}
}

func TestDeliverOverflowDropsOldestAndMarksLag(t *testing.T) {
	s := &Subscription{ch: make(chan SystemEvent, 2)}

	for i := 0; i < 5; i++ {
		s.deliver(SystemEvent{Type: EventDeviceInfo, Time: time.Unix(int64(i), 0)})
	}

	// Buffer holds the newest events; draining makes room so the next
	// delivery is preceded by a lag marker.
	first := drainOne(t, s)
	if first.Type == EventLagged {
		t.Fatal("lag marker must not displace pending data silently")
	}

	s.deliver(SystemEvent{Type: EventDeviceInfo, Time: time.Unix(99, 0)})

	sawLag := false
	for i := 0; i < 3; i++ {
		ev := drainOne(t, s)
		if ev.Type == EventLagged {
			if ev.Lagged == 0 {
				t.Fatal("lag marker must carry the drop count")
			}
			sawLag = true
			break
		}
	}
	if !sawLag {
		t.Fatal("no lag marker after overflow")
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	s := &Subscription{ch: make(chan SystemEvent, 1)}
	s.Unsubscribe()
	s.Unsubscribe() // second call must be a no-op

	if _, ok := <-s.Events(); ok {
		t.Fatal("channel should be closed")
	}
}

func TestEventUnionSinglePayload(t *testing.T) {
	ev := SystemEvent{
		Type: EventMsdStateChanged,
		Msd:  &MsdStateChanged{Connection: "drive"},
	}

	if ev.StreamState != nil || ev.Hid != nil || ev.Atx != nil {
		t.Fatal("exactly one payload pointer may be set")
	}
}
