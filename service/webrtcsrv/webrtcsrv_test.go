// SPDX-License-Identifier: BSD-3-Clause

package webrtcsrv

import (
	"errors"
	"testing"

	"github.com/one-kvm/one-kvm/pkg/video"
	"github.com/one-kvm/one-kvm/service/videosrv"
)

func TestPickCodec(t *testing.T) {
	svc := New(WithCodecs(video.CodecVP8, video.CodecH264))

	c, err := svc.pickCodec("")
	if err != nil || c != video.CodecVP8 {
		t.Fatalf("default preference: got %v, %v", c, err)
	}

	c, err = svc.pickCodec("H264")
	if err != nil || c != video.CodecH264 {
		t.Fatalf("h264: got %v, %v", c, err)
	}

	c, err = svc.pickCodec("vp9")
	if err != nil || c != video.CodecVP9 {
		t.Fatalf("vp9: got %v, %v", c, err)
	}
}

func TestPickCodecRejectsUnserveable(t *testing.T) {
	svc := New(WithCodecs(video.CodecH264))

	// No encoder backend exists for H265; it must fail typed instead of
	// producing a session with an empty mime.
	if _, err := svc.pickCodec("h265"); !errors.Is(err, ErrCodecUnsupported) {
		t.Fatalf("h265: got %v, want ErrCodecUnsupported", err)
	}
	if _, err := svc.pickCodec("av1"); !errors.Is(err, ErrCodecUnsupported) {
		t.Fatalf("av1: got %v, want ErrCodecUnsupported", err)
	}
}

func TestValidateFiltersUnserveableCodecs(t *testing.T) {
	cfg := &config{
		serviceName: "test",
		video:       videosrv.New(),
		codecs:      []video.Codec{video.CodecH265, video.CodecVP8},
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(cfg.codecs) != 1 || cfg.codecs[0] != video.CodecVP8 {
		t.Fatalf("codecs after validation: %v", cfg.codecs)
	}
}

func TestValidateDefaultsWhenNothingServeable(t *testing.T) {
	cfg := &config{
		serviceName: "test",
		video:       videosrv.New(),
		codecs:      []video.Codec{video.CodecH265},
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(cfg.codecs) == 0 || cfg.codecs[0] != video.CodecH264 {
		t.Fatalf("fallback codecs: %v", cfg.codecs)
	}
}
