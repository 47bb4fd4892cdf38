// SPDX-License-Identifier: BSD-3-Clause

package video

import (
	"errors"
	"testing"
)

func caps1080p() DeviceCaps {
	return DeviceCaps{
		Formats: map[PixelFormat][]ResolutionCaps{
			FormatMJPEG: {
				{Resolution: Resolution{1920, 1080}, Rates: []uint32{60, 30}},
				{Resolution: Resolution{1280, 720}, Rates: []uint32{60, 30}},
			},
			FormatYUYV: {
				{Resolution: Resolution{1280, 720}, Rates: []uint32{30, 10}},
			},
		},
	}
}

func TestNegotiatePrefersPriorityFormat(t *testing.T) {
	neg, err := Negotiate(caps1080p(), Request{
		Target: Resolution{1920, 1080},
		FPS:    30,
	})
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}

	if neg.Format != FormatMJPEG {
		t.Fatalf("format: got %v, want MJPEG", neg.Format)
	}
	if neg.Resolution != (Resolution{1920, 1080}) {
		t.Fatalf("resolution: got %v", neg.Resolution)
	}
	if neg.FPS != 30 {
		t.Fatalf("fps: got %d, want 30", neg.FPS)
	}
}

func TestNegotiateRespectsPreferredList(t *testing.T) {
	neg, err := Negotiate(caps1080p(), Request{
		Preferred: []PixelFormat{FormatYUYV},
		Target:    Resolution{1920, 1080},
		FPS:       30,
	})
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if neg.Format != FormatYUYV {
		t.Fatalf("format: got %v, want YUYV", neg.Format)
	}
	if neg.Resolution != (Resolution{1280, 720}) {
		t.Fatalf("resolution: got %v", neg.Resolution)
	}
}

func TestNegotiateResolutionTieBreak(t *testing.T) {
	caps := DeviceCaps{
		Formats: map[PixelFormat][]ResolutionCaps{
			FormatYUYV: {
				{Resolution: Resolution{800, 600}},
				{Resolution: Resolution{1024, 768}},
			},
		},
	}

	// Equidistant targets break toward the larger area.
	neg, err := Negotiate(caps, Request{Target: Resolution{912, 684}, FPS: 30})
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if neg.Resolution != (Resolution{1024, 768}) {
		t.Fatalf("tie break: got %v, want 1024x768", neg.Resolution)
	}
}

func TestNegotiateRatePicksNearestBelow(t *testing.T) {
	caps := DeviceCaps{
		Formats: map[PixelFormat][]ResolutionCaps{
			FormatYUYV: {
				{Resolution: Resolution{1280, 720}, Rates: []uint32{60, 25, 10}},
			},
		},
	}

	neg, err := Negotiate(caps, Request{Target: Resolution{1280, 720}, FPS: 30})
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if neg.FPS != 25 {
		t.Fatalf("fps: got %d, want 25", neg.FPS)
	}
}

func TestNegotiateRateAllAbove(t *testing.T) {
	caps := DeviceCaps{
		Formats: map[PixelFormat][]ResolutionCaps{
			FormatYUYV: {
				{Resolution: Resolution{1280, 720}, Rates: []uint32{60, 50}},
			},
		},
	}

	neg, err := Negotiate(caps, Request{Target: Resolution{1280, 720}, FPS: 30})
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if neg.FPS != 50 {
		t.Fatalf("fps: got %d, want lowest advertised 50", neg.FPS)
	}
}

func TestNegotiateNoIntersection(t *testing.T) {
	caps := DeviceCaps{Formats: map[PixelFormat][]ResolutionCaps{
		FormatGrey: {{Resolution: Resolution{640, 480}}},
	}}

	_, err := Negotiate(caps, Request{
		Preferred: []PixelFormat{FormatMJPEG},
		Target:    Resolution{640, 480},
	})
	if !errors.Is(err, ErrFormatUnsupported) {
		t.Fatalf("got %v, want ErrFormatUnsupported", err)
	}
}
