// SPDX-License-Identifier: BSD-3-Clause

// Package telemetry wires up the OpenTelemetry SDK for the one-kvm process.
// Setup installs global trace and log providers backed by OTLP/gRPC
// exporters when an endpoint is configured, and no-op providers otherwise.
// The setup must run before the first call to log.GetGlobalLogger so the
// slog bridge binds to the real provider.
package telemetry
