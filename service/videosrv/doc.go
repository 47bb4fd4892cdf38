// SPDX-License-Identifier: BSD-3-Clause

// Package videosrv owns the video plane: the V4L2 capturer, the shared
// pipeline that decodes MJPEG to a single canonical YUV420 image all
// encoders share, the per-codec encoder registry with its priority-ordered
// backends, and the stream manager switching between MJPEG passthrough and
// WebRTC modes.
//
// Encoders come and go with demand: the first subscriber for a codec
// instantiates one, the last departure disposes it after a short grace
// period. A still screen is detected by frame hash and encoding is skipped
// while liveness keyframes keep flowing per the GOP policy.
package videosrv
