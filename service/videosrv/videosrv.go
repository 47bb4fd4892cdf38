// SPDX-License-Identifier: BSD-3-Clause

package videosrv

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/one-kvm/one-kvm/pkg/broadcast"
	"github.com/one-kvm/one-kvm/pkg/bus"
	"github.com/one-kvm/one-kvm/pkg/log"
	"github.com/one-kvm/one-kvm/pkg/state"
	"github.com/one-kvm/one-kvm/pkg/video"
	"github.com/one-kvm/one-kvm/service"
)

// Compile-time assertion that Service implements service.Service.
var _ service.Service = (*Service)(nil)

// Service is the stream manager: it owns the capturer and pipeline
// lifetimes, the current mode and the raw MJPEG fan-out.
type Service struct {
	config *config
	logger *slog.Logger
	tracer trace.Tracer
	events *bus.Bus

	machine  *state.Machine
	pipeline *Pipeline
	mjpeg    *broadcast.Broadcaster[*video.Frame]

	mu       sync.Mutex
	capturer *video.Capturer
	mode     Mode
	neg      video.Negotiation
	online   bool
	lastErr  error
	running  bool

	wantStream atomic.Bool

	frames  atomic.Uint64
	dropped atomic.Uint64

	wake chan struct{}
}

// New creates a new video service instance.
func New(opts ...Option) *Service {
	cfg := &config{
		serviceName: DefaultServiceName,
		capture:     video.DefaultCaptureConfig(),
		mode:        ModeMjpeg,
	}
	for _, opt := range opts {
		opt.apply(cfg)
	}

	mjpeg := broadcast.New[*video.Frame](4)
	// Every MJPEG receiver owns one reference per delivered frame; the
	// broadcaster releases whatever it drops on overflow or detach.
	mjpeg.SetRefCounted(
		func(f *video.Frame) *video.Frame { return f.Retain() },
		func(f *video.Frame) { f.Release() },
	)

	return &Service{
		config:  cfg,
		machine: state.NewStreamerMachine("streamer"),
		mjpeg:   mjpeg,
		mode:    cfg.mode,
		wake:    make(chan struct{}, 1),
	}
}

// Name returns the service name.
func (s *Service) Name() string {
	return s.config.serviceName
}

// Run owns the capture loop until shutdown.
func (s *Service) Run(ctx context.Context, ipcConn nats.InProcessConnProvider) error {
	s.tracer = otel.Tracer(s.config.serviceName)

	ctx, span := s.tracer.Start(ctx, "videosrv.Run")
	defer span.End()

	s.logger = log.GetGlobalLogger().With("service", s.config.serviceName)

	if err := s.config.Validate(); err != nil {
		span.RecordError(err)
		return err
	}

	if ipcConn != nil {
		events, err := bus.Connect(ipcConn)
		if err != nil {
			span.RecordError(err)
			return err
		}
		s.events = events
		defer events.Close()
	}

	s.pipeline = newPipeline(s.config, s.logger, s.events)
	s.pipeline.Configure(s.config.capture.Target, s.config.capture.FPS)

	s.machine.SetBroadcastCallback(func(_, _, current, _ string) {
		s.publishStream(current)
	})

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Video service started",
		"device", s.config.capture.Device,
		"mode", s.mode)

	reapTicker := time.NewTicker(100 * time.Millisecond)
	defer reapTicker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-reapTicker.C:
				s.pipeline.Reap()
			}
		}
	}()

	s.streamLoop(ctx)

	s.pipeline.Close()

	s.mu.Lock()
	s.running = false
	if s.capturer != nil {
		_ = s.capturer.Stop()
		s.capturer = nil
	}
	s.mu.Unlock()

	return ctx.Err()
}

// Start begins streaming.
func (s *Service) Start() error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return ErrNotRunning
	}

	if !s.wantStream.Swap(true) {
		_ = s.machine.Fire(context.Background(), state.TriggerStart)
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

// Stop halts streaming and releases the device.
func (s *Service) Stop() error {
	if s.wantStream.Swap(false) {
		_ = s.machine.Fire(context.Background(), state.TriggerStop)
	}
	return nil
}

// SetMode switches between MJPEG passthrough and WebRTC. The switch is
// atomic; going to MJPEG lets the pipeline's grace period dispose encoders,
// while the MJPEG broadcaster always keeps serving stragglers until they
// drop.
func (s *Service) SetMode(m Mode) error {
	if m != ModeMjpeg && m != ModeWebrtc {
		return ErrInvalidConfiguration
	}

	s.mu.Lock()
	changed := s.mode != m
	s.mode = m
	s.mu.Unlock()

	if changed {
		s.publishStream(s.machine.State())
	}
	return nil
}

// Mode returns the current streaming mode.
func (s *Service) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SubscribeMjpeg attaches a raw frame receiver. Each delivered frame
// carries one reference owned by the receiver: callers must Release every
// frame they take from Next and must not mutate the payload.
func (s *Service) SubscribeMjpeg() *broadcast.Receiver[*video.Frame] {
	return s.mjpeg.Subscribe()
}

// SubscribeWebrtc attaches an encoded frame receiver for a codec,
// instantiating its encoder on demand.
func (s *Service) SubscribeWebrtc(c video.Codec, keyFrameRequired bool) (*Subscription, error) {
	return s.pipeline.Subscribe(c, keyFrameRequired)
}

// RequestKeyframe forces the codec's next output to be a key frame.
func (s *Service) RequestKeyframe(c video.Codec) {
	s.pipeline.RequestKeyframe(c)
}

// CongestionHint forwards a congestion signal from the session layer.
func (s *Service) CongestionHint(c video.Codec, down bool) {
	s.pipeline.CongestionHint(c, down)
}

// ListFormats enumerates the device's pixel formats.
func (s *Service) ListFormats(device string) ([]video.PixelFormat, error) {
	if device == "" {
		device = s.config.capture.Device
	}
	return video.ListFormats(device)
}

// ListResolutions enumerates frame sizes for a format.
func (s *Service) ListResolutions(device string, f video.PixelFormat) ([]video.Resolution, error) {
	if device == "" {
		device = s.config.capture.Device
	}
	return video.ListResolutions(device, f)
}

// Stats is the stream snapshot.
type Stats struct {
	State      string `json:"state"`
	Mode       string `json:"mode"`
	Online     bool   `json:"online"`
	Resolution string `json:"resolution,omitempty"`
	FPS        uint32 `json:"fps,omitempty"`
	Format     string `json:"format,omitempty"`
	Frames     uint64 `json:"frames"`
	Dropped    uint64 `json:"dropped"`
	LastError  string `json:"last_error,omitempty"`
}

// GetStats returns the stream snapshot.
func (s *Service) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		State:   s.machine.State(),
		Mode:    string(s.mode),
		Online:  s.online,
		Frames:  s.frames.Load(),
		Dropped: s.dropped.Load(),
	}
	if s.neg.FPS != 0 {
		st.Resolution = s.neg.Resolution.String()
		st.FPS = s.neg.FPS
		st.Format = s.neg.Format.String()
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// streamLoop opens the device whenever streaming is wanted, distributes
// frames and recovers device loss with exponential backoff.
func (s *Service) streamLoop(ctx context.Context) {
	backoff := 0

	for {
		if ctx.Err() != nil {
			return
		}

		if !s.wantStream.Load() {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
			}
			continue
		}

		err := s.streamOnce(ctx)
		if err != nil && ctx.Err() == nil && s.wantStream.Load() {
			s.mu.Lock()
			s.lastErr = err
			s.online = false
			s.mu.Unlock()

			s.publishDevice(false, err.Error())
			s.serveBlank()

			idx := backoff
			if idx >= len(reopenSchedule) {
				idx = len(reopenSchedule) - 1
			}
			backoff++

			select {
			case <-ctx.Done():
				return
			case <-time.After(reopenSchedule[idx]):
			}
			continue
		}
		backoff = 0
	}
}

// streamOnce runs one device session until stop, loss or shutdown.
func (s *Service) streamOnce(ctx context.Context) error {
	capturer, err := video.NewCapturer(s.config.capture)
	if err != nil {
		return err
	}

	neg, err := capturer.Open(ctx)
	if err != nil {
		return err
	}

	if err := capturer.Start(ctx); err != nil {
		_ = capturer.Stop()
		return err
	}

	s.mu.Lock()
	s.capturer = capturer
	s.neg = neg
	s.online = true
	s.lastErr = nil
	s.mu.Unlock()

	s.pipeline.Configure(neg.Resolution, neg.FPS)
	_ = s.machine.Fire(ctx, state.TriggerStarted)
	s.publishDevice(true, "")

	s.logger.InfoContext(ctx, "Capture negotiated",
		"format", neg.Format.String(),
		"resolution", neg.Resolution.String(),
		"fps", neg.FPS)

	defer func() {
		s.mu.Lock()
		s.capturer = nil
		s.mu.Unlock()
		_ = capturer.Stop()
	}()

	for {
		if !s.wantStream.Load() {
			_ = s.machine.Fire(ctx, state.TriggerStopped)
			return nil
		}

		frame, err := capturer.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			_ = s.machine.Fire(ctx, state.TriggerFail)
			_ = s.machine.Fire(ctx, state.TriggerRecover)
			_ = s.machine.Fire(ctx, state.TriggerStart)
			return err
		}

		s.frames.Add(1)
		s.distribute(frame)
	}
}

// distribute hands one frame to the MJPEG fan-out and, in WebRTC mode, the
// pipeline. The MJPEG broadcaster retains a reference per attached
// receiver; the pipeline reads the frame synchronously under our own
// reference, which is dropped once both consumers have it.
func (s *Service) distribute(frame *video.Frame) {
	s.mu.Lock()
	mode := s.mode
	s.mu.Unlock()

	s.mjpeg.Publish(frame)

	if mode == ModeWebrtc {
		s.pipeline.Push(frame)
	}

	frame.Release()
}

// serveBlank pushes an offline placeholder frame so consumers keep ticking
// while the device is being recovered.
func (s *Service) serveBlank() {
	s.mu.Lock()
	format := s.neg.Format
	res := s.neg.Resolution
	s.mu.Unlock()

	if res.Width == 0 || res.Height == 0 {
		res = s.config.capture.Target
	}

	s.frames.Add(1)
	s.distribute(video.BlackFrame(format, res, s.frames.Load()))
}

func (s *Service) publishStream(current string) {
	if s.events == nil {
		return
	}

	s.mu.Lock()
	mode := string(s.mode)
	online := s.online
	res := ""
	fps := uint32(0)
	if s.neg.FPS != 0 {
		res = s.neg.Resolution.String()
		fps = s.neg.FPS
	}
	s.mu.Unlock()

	_ = s.events.Publish(bus.SystemEvent{
		Type: bus.EventStreamStateChanged,
		StreamState: &bus.StreamStateChanged{
			State:      current,
			Mode:       mode,
			Resolution: res,
			FPS:        fps,
			Online:     online,
		},
	})
}

func (s *Service) publishDevice(online bool, reason string) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(bus.SystemEvent{
		Type: bus.EventVideoDeviceChanged,
		VideoDevice: &bus.VideoDeviceChanged{
			Device: s.config.capture.Device,
			Online: online,
			Reason: reason,
		},
	})
}
