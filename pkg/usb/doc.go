// SPDX-License-Identifier: BSD-3-Clause

// Package usb manipulates the kernel configfs USB gadget tree. It provides
// the mechanism only: creating and destroying the gadget, adding HID and
// mass-storage functions, binding to a UDC and polling its state. Policy —
// serialization, slot ownership, endpoint budgeting across changes, events —
// belongs to service/otgsrv.
//
// All paths are anchored on a Gadget value so tests can point the package at
// a temporary directory instead of /sys/kernel/config.
package usb
