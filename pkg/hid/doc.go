// SPDX-License-Identifier: BSD-3-Clause

// Package hid holds everything about HID bytes that is independent of the
// transport: event types, the browser-keycode to USB usage table, the boot
// protocol report builders with their per-device mirrors, the binary wire
// format spoken on the WebRTC data channel and the input WebSocket, and the
// CH9329 serial bridge packet codec. The byte layouts here are a contract
// with the browser helper library and must not drift.
package hid
