// SPDX-License-Identifier: BSD-3-Clause

// Package msdsrv catalogs disk images and exposes one of them — or the
// writable drive — to the target through the mass-storage gadget function.
// Exactly one connection exists at a time and every transition passes
// through the disconnected state, with a bus event per hop. The target
// ejecting the medium is observed by polling the LUN backing file and
// surfaces as an ejected event followed by an automatic disconnect.
package msdsrv
