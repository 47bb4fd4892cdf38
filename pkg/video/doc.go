// SPDX-License-Identifier: BSD-3-Clause

// Package video provides the capture side of the media pipeline: pixel
// format taxonomy with negotiation priorities, reference-counted frames, and
// a V4L2 capturer built on go4vl that negotiates format, resolution and
// frame rate against what the driver advertises.
package video
