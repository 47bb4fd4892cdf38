// SPDX-License-Identifier: BSD-3-Clause

package videosrv

import (
	"context"
	"image"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/one-kvm/one-kvm/pkg/video"
)

type fakeEncoder struct {
	codec   video.Codec
	encodes atomic.Int64
	keyNext atomic.Bool
	closed  atomic.Bool
}

func (f *fakeEncoder) Encode(img *image.YCbCr) ([]byte, error) {
	f.encodes.Add(1)
	if f.keyNext.Swap(false) {
		return []byte{0x00, 0x00, 0x00, 0x9d, 0x01, 0x2a}, nil // VP8 key frame: tag bit 0 clear, then the start code
	}
	return []byte{0x01}, nil
}

func (f *fakeEncoder) SetBitrate(uint32) {}

func (f *fakeEncoder) ForceKeyframe() { f.keyNext.Store(true) }

func (f *fakeEncoder) Backend() string { return "fake" }

func (f *fakeEncoder) Close() error {
	f.closed.Store(true)
	return nil
}

func fakeRegistry(enc *fakeEncoder) *Registry {
	r := NewRegistry()
	r.Register(video.CodecVP8, "fake", 100, func(video.Resolution, uint32, uint32) (Encoder, error) {
		return enc, nil
	})
	r.Seal()
	return r
}

func testPipeline(t *testing.T, enc *fakeEncoder, grace time.Duration) *Pipeline {
	t.Helper()
	cfg := &config{
		serviceName:  "test",
		capture:      video.DefaultCaptureConfig(),
		mode:         ModeWebrtc,
		keepalive:    50 * time.Millisecond,
		encoderGrace: grace,
		bitrateKbps:  1000,
		maxBitrateKbps: 4000,
		registry:     fakeRegistry(enc),
	}
	p := newPipeline(cfg, slog.Default(), nil)
	p.Configure(video.Resolution{Width: 64, Height: 48}, 30)
	return p
}

func greyFrame(seq uint64, fill byte) *video.Frame {
	res := video.Resolution{Width: 64, Height: 48}
	buf := make([]byte, video.FrameSize(video.FormatGrey, res))
	for i := range buf {
		buf[i] = fill
	}
	return video.NewFrame(buf, video.FormatGrey, res, 64, seq, time.Now(), true, nil)
}

func TestEncoderLifecycle(t *testing.T) {
	enc := &fakeEncoder{codec: video.CodecVP8}
	p := testPipeline(t, enc, 50*time.Millisecond)

	sub, err := p.Subscribe(video.CodecVP8, true)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if got := p.ActiveCodecs(); len(got) != 1 || got[0] != video.CodecVP8 {
		t.Fatalf("encoder not instantiated on subscribe: %v", got)
	}

	sub.Close()
	if len(p.ActiveCodecs()) != 1 {
		t.Fatal("encoder disposed before grace period")
	}

	time.Sleep(80 * time.Millisecond)
	p.Reap()

	if len(p.ActiveCodecs()) != 0 {
		t.Fatal("encoder not disposed after grace period")
	}
	if !enc.closed.Load() {
		t.Fatal("encoder Close not called")
	}
}

func TestSecondSubscriberSharesEncoder(t *testing.T) {
	enc := &fakeEncoder{codec: video.CodecVP8}
	p := testPipeline(t, enc, time.Minute)

	s1, err := p.Subscribe(video.CodecVP8, false)
	if err != nil {
		t.Fatalf("Subscribe 1: %v", err)
	}
	s2, err := p.Subscribe(video.CodecVP8, false)
	if err != nil {
		t.Fatalf("Subscribe 2: %v", err)
	}

	s1.Close()
	p.Reap()
	if len(p.ActiveCodecs()) != 1 {
		t.Fatal("encoder disposed while a subscriber remains")
	}

	s2.Close()
}

func TestSubscriberReceivesOnlyItsCodec(t *testing.T) {
	enc := &fakeEncoder{codec: video.CodecVP8}
	p := testPipeline(t, enc, time.Minute)

	sub, err := p.Subscribe(video.CodecVP8, false)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	p.Push(greyFrame(1, 0x10))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	frame, err := sub.Frames.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if frame.Codec != video.CodecVP8 {
		t.Fatalf("codec: got %v, want VP8", frame.Codec)
	}
}

func TestStillScreenSkipsEncoding(t *testing.T) {
	enc := &fakeEncoder{codec: video.CodecVP8}
	p := testPipeline(t, enc, time.Minute)

	sub, err := p.Subscribe(video.CodecVP8, false)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	// Identical frames past the keepalive window should replay the last
	// output instead of encoding, except for GOP keyframes.
	p.Push(greyFrame(1, 0x42))
	base := enc.encodes.Load()

	time.Sleep(80 * time.Millisecond) // beyond the 50 ms keepalive

	for seq := uint64(2); seq < 10; seq++ {
		p.Push(greyFrame(seq, 0x42))
	}

	// Frames 2..9 are still; none falls on a GOP boundary (gop=30), so no
	// further encodes should have happened.
	if got := enc.encodes.Load(); got != base {
		t.Fatalf("still frames were encoded: %d extra", got-base)
	}

	// A changed frame must encode again.
	p.Push(greyFrame(10, 0x43))
	if got := enc.encodes.Load(); got == base {
		t.Fatal("changed frame was not encoded")
	}
}

func TestCongestionHintAIMD(t *testing.T) {
	enc := &fakeEncoder{codec: video.CodecVP8}
	p := testPipeline(t, enc, time.Minute)

	sub, err := p.Subscribe(video.CodecVP8, false)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	p.mu.Lock()
	lane := p.lanes[video.CodecVP8]
	before := lane.bitrate
	p.mu.Unlock()

	p.CongestionHint(video.CodecVP8, true)

	p.mu.Lock()
	after := lane.bitrate
	p.mu.Unlock()

	if after >= before {
		t.Fatalf("decrease: %d -> %d", before, after)
	}
	if want := uint32(float64(before) * 0.7); after != want {
		t.Fatalf("multiplicative decrease: got %d, want %d", after, want)
	}

	p.CongestionHint(video.CodecVP8, false)

	p.mu.Lock()
	raised := lane.bitrate
	p.mu.Unlock()

	if raised != after+after/10 {
		t.Fatalf("additive increase: got %d, want %d", raised, after+after/10)
	}
}
