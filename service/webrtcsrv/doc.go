// SPDX-License-Identifier: BSD-3-Clause

// Package webrtcsrv negotiates browser sessions: one peer connection per
// viewer with a video track fed from the shared pipeline, an Opus audio
// track, and a data channel carrying binary HID messages back into the
// input path. Receiver RTCP (PLI, NACK, REMB) is folded into keyframe
// requests and congestion hints for the encoders.
//
// Sessions live in a table keyed by a random session ID; handler-facing
// methods look the ID up on every use. Each session records a generation
// number, which lookups do not compare.
package webrtcsrv
