// SPDX-License-Identifier: BSD-3-Clause

// Package file provides atomic file creation and update helpers used for
// image sidecar metadata, the persistent appliance identity and anything
// else that must never be observed half-written.
package file
