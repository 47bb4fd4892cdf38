// SPDX-License-Identifier: BSD-3-Clause

package video

import "testing"

func TestFrameSizeUncompressed(t *testing.T) {
	res := Resolution{1920, 1080}
	pixels := 1920 * 1080

	tests := []struct {
		format PixelFormat
		want   int
	}{
		{FormatYUYV, pixels * 2},
		{FormatUYVY, pixels * 2},
		{FormatNV12, pixels * 3 / 2},
		{FormatYUV420, pixels * 3 / 2},
		{FormatRGB24, pixels * 3},
		{FormatRGB565, pixels * 2},
		{FormatGrey, pixels},
	}
	for _, tt := range tests {
		if got := FrameSize(tt.format, res); got != tt.want {
			t.Fatalf("%v: got %d, want %d", tt.format, got, tt.want)
		}
	}
}

func TestFrameSizeCompressedIsZero(t *testing.T) {
	res := Resolution{1280, 720}
	if FrameSize(FormatMJPEG, res) != 0 || FrameSize(FormatJPEG, res) != 0 {
		t.Fatal("compressed formats have payload-defined sizes")
	}
}

func TestFourCCRoundTrip(t *testing.T) {
	for _, f := range AllFormats() {
		if got := FormatFromFourCC(f.FourCC()); got != f {
			t.Fatalf("%v: round trip gave %v", f, got)
		}
	}
	if FormatFromFourCC(0xdeadbeef) != FormatUnknown {
		t.Fatal("unknown fourcc must map to FormatUnknown")
	}
}

func TestPriorityOrdering(t *testing.T) {
	if FormatMJPEG.Priority() <= FormatYUYV.Priority() {
		t.Fatal("MJPEG must outrank YUYV")
	}
	if FormatYUYV.Priority() <= FormatGrey.Priority() {
		t.Fatal("YUYV must outrank Grey")
	}
}
