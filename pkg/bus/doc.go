// SPDX-License-Identifier: BSD-3-Clause

// Package bus defines the system event union and the fan-out bus carrying it
// between services and any web-facing subscribers. Events travel over the
// embedded NATS server as JSON; each subscriber owns a bounded buffer and a
// slow subscriber loses the oldest pending events, observing a lag marker it
// can use to resync by polling controller status snapshots. Publishing never
// blocks the producer.
package bus
