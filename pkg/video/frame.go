// SPDX-License-Identifier: BSD-3-Clause

package video

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Frame is an immutable, reference-counted captured frame. It is created by
// the capturer with one reference held by the caller; every additional
// consumer must Retain before use and Release when done. The buffer returns
// to the capture pool when the last reference drops.
type Frame struct {
	buf        []byte
	format     PixelFormat
	resolution Resolution
	stride     int
	sequence   uint64
	captureTS  time.Time
	online     bool
	key        bool

	refs    atomic.Int32
	release func([]byte)

	hashOnce sync.Once
	hash     uint64
}

// NewFrame wraps buf into a frame holding one reference. release, if
// non-nil, receives the buffer back after the final Release.
func NewFrame(buf []byte, format PixelFormat, res Resolution, stride int, seq uint64, ts time.Time, online bool, release func([]byte)) *Frame {
	f := &Frame{
		buf:        buf,
		format:     format,
		resolution: res,
		stride:     stride,
		sequence:   seq,
		captureTS:  ts,
		online:     online,
		key:        true,
		release:    release,
	}
	f.refs.Store(1)
	return f
}

// Bytes returns the frame payload. Callers must not mutate it.
func (f *Frame) Bytes() []byte { return f.buf }

// Format returns the pixel format.
func (f *Frame) Format() PixelFormat { return f.format }

// Resolution returns the frame size.
func (f *Frame) Resolution() Resolution { return f.resolution }

// Stride returns the row stride in bytes, zero for compressed payloads.
func (f *Frame) Stride() int { return f.stride }

// Sequence returns the monotonic capture sequence number.
func (f *Frame) Sequence() uint64 { return f.sequence }

// Timestamp returns the capture time.
func (f *Frame) Timestamp() time.Time { return f.captureTS }

// Online reports whether the frame carries live signal; false marks the
// black placeholder frames emitted while the device is away.
func (f *Frame) Online() bool { return f.online }

// Hash returns the xxHash64 of the payload, computed once and cached.
func (f *Frame) Hash() uint64 {
	f.hashOnce.Do(func() {
		f.hash = xxhash.Sum64(f.buf)
	})
	return f.hash
}

// Retain adds a reference for a new consumer.
func (f *Frame) Retain() *Frame {
	f.refs.Add(1)
	return f
}

// Release drops a reference; the last drop recycles the buffer.
func (f *Frame) Release() {
	if f.refs.Add(-1) != 0 {
		return
	}
	if f.release != nil {
		f.release(f.buf)
	}
	f.buf = nil
}

// BlackFrame builds an offline placeholder frame: black pixels at the given
// geometry with the online flag cleared. Compressed formats fall back to a
// planar YUV420 payload so the size stays derivable.
func BlackFrame(format PixelFormat, res Resolution, seq uint64) *Frame {
	if format.Compressed() || format == FormatUnknown {
		format = FormatYUV420
	}

	size := FrameSize(format, res)
	buf := make([]byte, size)

	// Black in YUV is luma 0x10, chroma 0x80.
	switch format {
	case FormatYUV420, FormatYVU420, FormatNV12:
		luma := int(res.Area())
		for i := 0; i < luma && i < size; i++ {
			buf[i] = 0x10
		}
		for i := int(res.Area()); i < size; i++ {
			buf[i] = 0x80
		}
	case FormatYUYV, FormatYVYU:
		for i := 0; i+1 < size; i += 2 {
			buf[i] = 0x10
			buf[i+1] = 0x80
		}
	case FormatUYVY:
		for i := 0; i+1 < size; i += 2 {
			buf[i] = 0x80
			buf[i+1] = 0x10
		}
	}

	return NewFrame(buf, format, res, rowStrideOf(format, res), seq, time.Now(), false, nil)
}

// Codec tags an encoded frame.
type Codec uint8

const (
	CodecH264 Codec = iota
	CodecH265
	CodecVP8
	CodecVP9
	CodecJPEG
)

// String returns the canonical codec name.
func (c Codec) String() string {
	switch c {
	case CodecH264:
		return "h264"
	case CodecH265:
		return "h265"
	case CodecVP8:
		return "vp8"
	case CodecVP9:
		return "vp9"
	case CodecJPEG:
		return "jpeg"
	default:
		return "unknown"
	}
}

// EncodedFrame is one encoder output unit. Timestamps run on the 90 kHz
// video clock.
type EncodedFrame struct {
	Data     []byte
	Codec    Codec
	KeyFrame bool
	PTS      uint64
	DTS      uint64
	Duration time.Duration
}
