// SPDX-License-Identifier: BSD-3-Clause

// Package id manages the persistent appliance identity. The identity is a
// UUID stored under the data directory and doubles as the USB gadget serial
// number so the target PC sees a stable device across reboots.
package id
