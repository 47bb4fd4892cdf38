// SPDX-License-Identifier: BSD-3-Clause

// Package audiosrv captures audio from the HDMI capture card's sound
// device at 48 kHz stereo, encodes fixed 20 ms Opus frames and broadcasts
// them to whoever is listening (the WebRTC audio tracks). Device loss is
// recovered with the same backoff-and-reopen policy as video capture.
package audiosrv
