// SPDX-License-Identifier: BSD-3-Clause

package video

import "fmt"

// PixelFormat is the closed set of pixel formats the pipeline understands.
type PixelFormat uint8

const (
	FormatUnknown PixelFormat = iota
	FormatMJPEG
	FormatJPEG
	FormatYUYV
	FormatNV12
	FormatYUV420
	FormatUYVY
	FormatYVYU
	FormatYVU420
	FormatNV16
	FormatNV24
	FormatRGB24
	FormatBGR24
	FormatRGB565
	FormatGrey
)

// Priority orders formats for negotiation; a higher value wins when the
// driver offers several.
func (f PixelFormat) Priority() int {
	switch f {
	case FormatMJPEG:
		return 100
	case FormatJPEG:
		return 99
	case FormatYUYV:
		return 80
	case FormatNV12:
		return 75
	case FormatYUV420:
		return 70
	case FormatUYVY:
		return 65
	case FormatYVYU:
		return 64
	case FormatYVU420:
		return 63
	case FormatNV16:
		return 60
	case FormatNV24:
		return 55
	case FormatRGB24:
		return 50
	case FormatBGR24:
		return 49
	case FormatRGB565:
		return 40
	case FormatGrey:
		return 10
	default:
		return 0
	}
}

// Compressed reports whether frame payloads carry entropy-coded data whose
// size is not derivable from the resolution.
func (f PixelFormat) Compressed() bool {
	return f == FormatMJPEG || f == FormatJPEG
}

func fourcc(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// FourCC returns the V4L2 fourcc of the format.
func (f PixelFormat) FourCC() uint32 {
	switch f {
	case FormatMJPEG:
		return fourcc('M', 'J', 'P', 'G')
	case FormatJPEG:
		return fourcc('J', 'P', 'E', 'G')
	case FormatYUYV:
		return fourcc('Y', 'U', 'Y', 'V')
	case FormatNV12:
		return fourcc('N', 'V', '1', '2')
	case FormatYUV420:
		return fourcc('Y', 'U', '1', '2')
	case FormatUYVY:
		return fourcc('U', 'Y', 'V', 'Y')
	case FormatYVYU:
		return fourcc('Y', 'V', 'Y', 'U')
	case FormatYVU420:
		return fourcc('Y', 'V', '1', '2')
	case FormatNV16:
		return fourcc('N', 'V', '1', '6')
	case FormatNV24:
		return fourcc('N', 'V', '2', '4')
	case FormatRGB24:
		return fourcc('R', 'G', 'B', '3')
	case FormatBGR24:
		return fourcc('B', 'G', 'R', '3')
	case FormatRGB565:
		return fourcc('R', 'G', 'B', 'P')
	case FormatGrey:
		return fourcc('G', 'R', 'E', 'Y')
	default:
		return 0
	}
}

// FormatFromFourCC maps a V4L2 fourcc back into the closed set; unknown
// fourccs return FormatUnknown.
func FormatFromFourCC(fcc uint32) PixelFormat {
	for _, f := range AllFormats() {
		if f.FourCC() == fcc {
			return f
		}
	}
	return FormatUnknown
}

// AllFormats lists the closed set in declaration order.
func AllFormats() []PixelFormat {
	return []PixelFormat{
		FormatMJPEG, FormatJPEG, FormatYUYV, FormatNV12, FormatYUV420,
		FormatUYVY, FormatYVYU, FormatYVU420, FormatNV16, FormatNV24,
		FormatRGB24, FormatBGR24, FormatRGB565, FormatGrey,
	}
}

// String returns the canonical lowercase name.
func (f PixelFormat) String() string {
	switch f {
	case FormatMJPEG:
		return "mjpeg"
	case FormatJPEG:
		return "jpeg"
	case FormatYUYV:
		return "yuyv"
	case FormatNV12:
		return "nv12"
	case FormatYUV420:
		return "yuv420"
	case FormatUYVY:
		return "uyvy"
	case FormatYVYU:
		return "yvyu"
	case FormatYVU420:
		return "yvu420"
	case FormatNV16:
		return "nv16"
	case FormatNV24:
		return "nv24"
	case FormatRGB24:
		return "rgb24"
	case FormatBGR24:
		return "bgr24"
	case FormatRGB565:
		return "rgb565"
	case FormatGrey:
		return "grey"
	default:
		return "unknown"
	}
}

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  uint32
	Height uint32
}

// Area returns the pixel count.
func (r Resolution) Area() uint64 {
	return uint64(r.Width) * uint64(r.Height)
}

// String renders WxH.
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// rowStrideOf returns the luma/packed row stride in bytes, zero for
// compressed payloads.
func rowStrideOf(f PixelFormat, r Resolution) int {
	switch f {
	case FormatYUYV, FormatUYVY, FormatYVYU, FormatRGB565, FormatNV16:
		return int(r.Width) * 2
	case FormatRGB24, FormatBGR24, FormatNV24:
		return int(r.Width) * 3
	case FormatYUV420, FormatYVU420, FormatNV12, FormatGrey:
		return int(r.Width)
	default:
		return 0
	}
}

// FrameSize returns the buffer size of an uncompressed frame, or 0 for
// compressed formats whose size is payload-defined.
func FrameSize(f PixelFormat, r Resolution) int {
	pixels := int(r.Width) * int(r.Height)
	switch f {
	case FormatMJPEG, FormatJPEG:
		return 0
	case FormatYUYV, FormatUYVY, FormatYVYU, FormatRGB565, FormatNV16:
		return pixels * 2
	case FormatYUV420, FormatYVU420, FormatNV12:
		return pixels * 3 / 2
	case FormatNV24, FormatRGB24, FormatBGR24:
		return pixels * 3
	case FormatGrey:
		return pixels
	default:
		return 0
	}
}
