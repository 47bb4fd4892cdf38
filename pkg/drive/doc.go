// SPDX-License-Identifier: BSD-3-Clause

// Package drive manages the writable virtual drive image: a FAT filesystem
// inside a raw file that the mass-storage gadget exposes to the target as a
// block device. While the drive is attached to the target the host-side
// view is a frozen snapshot taken at connect time; host writes are refused
// to keep the on-wire filesystem consistent.
package drive
