// SPDX-License-Identifier: BSD-3-Clause

package bus

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// subjectPrefix is the NATS subject space for system events.
	subjectPrefix = "event."

	// subjectWildcard matches every system event.
	subjectWildcard = "event.>"

	// DefaultSubscriberBuffer is the per-subscriber pending event budget.
	DefaultSubscriberBuffer = 64
)

// Bus publishes and subscribes SystemEvents over a NATS connection.
type Bus struct {
	conn *nats.Conn
}

// Connect establishes an in-process connection to the embedded NATS server
// and returns a Bus over it.
func Connect(provider nats.InProcessConnProvider) (*Bus, error) {
	conn, err := nats.Connect("", nats.InProcessServer(provider))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	return &Bus{conn: conn}, nil
}

// NewWithConn wraps an existing NATS connection.
func NewWithConn(conn *nats.Conn) *Bus {
	return &Bus{conn: conn}
}

// Close drains the underlying connection.
func (b *Bus) Close() {
	if b.conn != nil {
		_ = b.conn.Drain()
	}
}

// Publish emits an event. It stamps the event time if unset and returns
// without waiting for any subscriber; NATS buffers the write.
func (b *Bus) Publish(ev SystemEvent) error {
	if b.conn == nil {
		return ErrNotConnected
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMarshal, err)
	}

	return b.conn.Publish(subjectPrefix+string(ev.Type), data)
}

// Subscription delivers events to a single subscriber with a bounded buffer.
type Subscription struct {
	sub    *nats.Subscription
	ch     chan SystemEvent
	lagged atomic.Uint64
	closed atomic.Bool
}

// Subscribe creates a subscription seeing every system event. buffer bounds
// the pending events; zero selects DefaultSubscriberBuffer. When the buffer
// overflows, the oldest pending event is discarded and the next delivered
// event is preceded by an EventLagged marker carrying the drop count.
func (b *Bus) Subscribe(buffer int) (*Subscription, error) {
	if b.conn == nil {
		return nil, ErrNotConnected
	}
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	s := &Subscription{
		ch: make(chan SystemEvent, buffer),
	}

	sub, err := b.conn.Subscribe(subjectWildcard, func(msg *nats.Msg) {
		var ev SystemEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return
		}
		s.deliver(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubscribe, err)
	}

	s.sub = sub
	return s, nil
}

// Events returns the subscriber's event channel. The channel is closed by
// Unsubscribe.
func (s *Subscription) Events() <-chan SystemEvent {
	return s.ch
}

// Unsubscribe tears down the subscription and closes the event channel.
func (s *Subscription) Unsubscribe() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.sub != nil {
		_ = s.sub.Unsubscribe()
	}
	close(s.ch)
}

func (s *Subscription) deliver(ev SystemEvent) {
	if s.closed.Load() {
		return
	}

	if n := s.lagged.Swap(0); n > 0 {
		marker := SystemEvent{Type: EventLagged, Time: time.Now(), Lagged: n}
		select {
		case s.ch <- marker:
		default:
			// Still full; restore the count so the marker is retried on the
			// next delivery.
			s.lagged.Add(n)
		}
	}

	select {
	case s.ch <- ev:
		return
	default:
	}

	// Buffer full: drop the oldest pending event to make room.
	select {
	case <-s.ch:
		s.lagged.Add(1)
	default:
	}

	select {
	case s.ch <- ev:
	default:
		s.lagged.Add(1)
	}
}
