// SPDX-License-Identifier: BSD-3-Clause

// Package log provides the shared structured logger for the one-kvm process.
// Console output goes through zerolog while a parallel OpenTelemetry bridge
// forwards records to the configured logger provider. Adapters for the
// embedded NATS server and the oversight supervision tree are included so
// that every subsystem logs through the same pipeline.
package log
