// SPDX-License-Identifier: BSD-3-Clause

package videosrv

import (
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/one-kvm/one-kvm/pkg/broadcast"
	"github.com/one-kvm/one-kvm/pkg/bus"
	"github.com/one-kvm/one-kvm/pkg/video"
)

// videoClock is the RTP clock rate for video timestamps.
const videoClock = 90000

// Pipeline is the shared decode/convert/encode stage. One instance per
// process: every subscriber of a codec shares that codec's encoder, and all
// encoders share one decoded YUV420 image per input frame.
type Pipeline struct {
	keepalive  time.Duration
	grace      time.Duration
	gop        uint32
	bitrate    uint32
	maxBitrate uint32
	registry   *Registry
	logger     *slog.Logger
	events     *bus.Bus

	mu    sync.Mutex
	res   video.Resolution
	fps   uint32
	lanes map[video.Codec]*codecLane

	lastHash  uint64
	sameSince time.Time
}

// Subscription is one consumer's hookup to a codec lane.
type Subscription struct {
	Frames *broadcast.Receiver[video.EncodedFrame]

	pipeline *Pipeline
	codec    video.Codec
	once     sync.Once
}

// Close detaches the subscription; the last one for a codec starts the
// encoder disposal grace period.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.Frames.Close()
		s.pipeline.unsubscribe(s.codec)
	})
}

type codecLane struct {
	codec   video.Codec
	enc     Encoder
	out     *broadcast.Broadcaster[video.EncodedFrame]
	subs    int
	idleAt  time.Time

	frames   uint64
	forceKey bool
	lastOut  *video.EncodedFrame

	bitrate    uint32
	lastRaise  time.Time
}

func newPipeline(cfg *config, logger *slog.Logger, events *bus.Bus) *Pipeline {
	return &Pipeline{
		keepalive:  cfg.keepalive,
		grace:      cfg.encoderGrace,
		gop:        cfg.gopSize,
		bitrate:    cfg.bitrateKbps,
		maxBitrate: cfg.maxBitrateKbps,
		registry:   cfg.registry,
		logger:     logger,
		events:     events,
		lanes:      make(map[video.Codec]*codecLane),
	}
}

// Configure records the capture geometry encoders are built against.
func (p *Pipeline) Configure(res video.Resolution, fps uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.res = res
	p.fps = fps
}

// Subscribe attaches a consumer to a codec, instantiating the encoder on
// first demand. keyFrameRequired forces the consumer's first frame to be a
// key frame.
func (p *Pipeline) Subscribe(c video.Codec, keyFrameRequired bool) (*Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	lane, ok := p.lanes[c]
	if !ok {
		enc, err := p.registry.Build(c, p.res, p.fps, p.bitrate)
		if err != nil {
			return nil, err
		}

		lane = &codecLane{
			codec:   c,
			enc:     enc,
			out:     broadcast.New[video.EncodedFrame](DefaultEncodedRing),
			bitrate: p.bitrate,
		}
		// Full rings prefer dropping delta frames; a key frame only goes
		// when everything pending is a key frame already.
		lane.out.SetDroppable(func(f video.EncodedFrame) bool { return !f.KeyFrame })
		p.lanes[c] = lane

		p.emitEncoder(lane, true)
		p.logger.Info("Encoder instantiated", "codec", c.String(), "backend", enc.Backend())
	}

	lane.subs++
	lane.idleAt = time.Time{}
	if keyFrameRequired {
		lane.forceKey = true
		lane.enc.ForceKeyframe()
	}

	return &Subscription{Frames: lane.out.Subscribe(), pipeline: p, codec: c}, nil
}

func (p *Pipeline) unsubscribe(c video.Codec) {
	p.mu.Lock()
	defer p.mu.Unlock()

	lane, ok := p.lanes[c]
	if !ok {
		return
	}
	lane.subs--
	if lane.subs <= 0 {
		lane.subs = 0
		lane.idleAt = time.Now()
	}
}

// RequestKeyframe makes the codec's next output a key frame.
func (p *Pipeline) RequestKeyframe(c video.Codec) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if lane, ok := p.lanes[c]; ok {
		lane.forceKey = true
		lane.enc.ForceKeyframe()
	}
}

// CongestionHint adjusts a codec's bitrate: multiplicative decrease (×0.7)
// on every down hint, additive increase (10%/s, applied per hint but rate
// limited) while the path is clean.
func (p *Pipeline) CongestionHint(c video.Codec, down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	lane, ok := p.lanes[c]
	if !ok {
		return
	}

	if down {
		lane.bitrate = uint32(float64(lane.bitrate) * 0.7)
		if lane.bitrate < 100 {
			lane.bitrate = 100
		}
	} else {
		if time.Since(lane.lastRaise) < time.Second {
			return
		}
		lane.lastRaise = time.Now()
		lane.bitrate += lane.bitrate / 10
		if lane.bitrate > p.maxBitrate {
			lane.bitrate = p.maxBitrate
		}
	}

	lane.enc.SetBitrate(lane.bitrate)
	p.emitEncoder(lane, true)
}

// ActiveCodecs lists codecs with a live encoder.
func (p *Pipeline) ActiveCodecs() []video.Codec {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]video.Codec, 0, len(p.lanes))
	for c := range p.lanes {
		out = append(out, c)
	}
	return out
}

// Push feeds one captured frame through the pipeline. Decoding happens at
// most once regardless of lane count; a still screen skips encoding and
// replays the previous output with fresh timestamps, except that GOP
// keyframes keep the stream alive.
func (p *Pipeline) Push(f *video.Frame) {
	p.mu.Lock()

	p.reapLocked(time.Now())

	if len(p.lanes) == 0 {
		p.mu.Unlock()
		return
	}

	hash := f.Hash()
	now := time.Now()
	if hash != p.lastHash {
		p.lastHash = hash
		p.sameSince = now
	}
	still := now.Sub(p.sameSince) > p.keepalive

	fps := p.fps
	if fps == 0 {
		fps = 30
	}
	gop := p.gop
	if gop == 0 {
		gop = fps
	}

	lanes := make([]*codecLane, 0, len(p.lanes))
	for _, lane := range p.lanes {
		lanes = append(lanes, lane)
	}
	p.mu.Unlock()

	var decoded *image.YCbCr
	decode := func() *image.YCbCr {
		if decoded == nil {
			img, err := toYUV420(f)
			if err != nil {
				p.logger.Warn("Frame decode failed", "error", err)
				return nil
			}
			decoded = img
		}
		return decoded
	}

	for _, lane := range lanes {
		p.mu.Lock()
		gopDue := lane.frames%uint64(gop) == 0
		force := lane.forceKey
		replay := lane.lastOut
		p.mu.Unlock()

		pts := lane.frames * videoClock / uint64(fps)

		if still && !gopDue && !force && replay != nil {
			out := *replay
			out.PTS = pts
			out.DTS = pts
			lane.out.Publish(out)
			p.mu.Lock()
			lane.frames++
			p.mu.Unlock()
			continue
		}

		img := decode()
		if img == nil {
			continue
		}

		if gopDue || force {
			lane.enc.ForceKeyframe()
		}

		data, err := lane.enc.Encode(img)
		if err != nil {
			p.logger.Warn("Encode failed", "codec", lane.codec.String(), "error", err)
			continue
		}
		if data == nil {
			continue
		}

		out := video.EncodedFrame{
			Data:     data,
			Codec:    lane.codec,
			KeyFrame: isKeyFrame(lane.codec, data),
			PTS:      pts,
			DTS:      pts,
			Duration: time.Second / time.Duration(fps),
		}
		lane.out.Publish(out)

		p.mu.Lock()
		lane.frames++
		if out.KeyFrame {
			lane.forceKey = false
		}
		lane.lastOut = &out
		p.mu.Unlock()
	}
}

// Reap disposes encoders whose grace period expired. Called periodically by
// the manager so idle encoders die even when no frames flow.
func (p *Pipeline) Reap() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reapLocked(time.Now())
}

func (p *Pipeline) reapLocked(now time.Time) {
	for c, lane := range p.lanes {
		if lane.subs == 0 && !lane.idleAt.IsZero() && now.Sub(lane.idleAt) > p.grace {
			_ = lane.enc.Close()
			delete(p.lanes, c)
			p.emitEncoder(lane, false)
			p.logger.Info("Encoder disposed", "codec", c.String())
		}
	}
}

// Close disposes every encoder immediately.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for c, lane := range p.lanes {
		_ = lane.enc.Close()
		delete(p.lanes, c)
		p.emitEncoder(lane, false)
	}
}

func (p *Pipeline) emitEncoder(lane *codecLane, active bool) {
	if p.events == nil {
		return
	}
	_ = p.events.Publish(bus.SystemEvent{
		Type: bus.EventEncoderChanged,
		Encoder: &bus.EncoderChanged{
			Codec:   lane.codec.String(),
			Backend: lane.enc.Backend(),
			Active:  active,
			Bitrate: lane.bitrate,
		},
	})
}
