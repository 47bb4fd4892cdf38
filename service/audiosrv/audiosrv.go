// SPDX-License-Identifier: BSD-3-Clause

package audiosrv

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	opus "gopkg.in/hraban/opus.v2"

	"github.com/one-kvm/one-kvm/pkg/broadcast"
	"github.com/one-kvm/one-kvm/pkg/bus"
	"github.com/one-kvm/one-kvm/pkg/log"
	"github.com/one-kvm/one-kvm/service"
)

// Compile-time assertion that Service implements service.Service.
var _ service.Service = (*Service)(nil)

// Frame is one encoded 20 ms Opus frame. Timestamp runs on the 48 kHz RTP
// clock.
type Frame struct {
	Data      []byte
	Sequence  uint64
	Timestamp uint64
	Duration  time.Duration
}

// reopenSchedule paces capture reopen attempts after device loss.
var reopenSchedule = []time.Duration{
	200 * time.Millisecond,
	400 * time.Millisecond,
	800 * time.Millisecond,
	1600 * time.Millisecond,
	2 * time.Second,
}

// Service is the audio controller.
type Service struct {
	config *config
	logger *slog.Logger
	tracer trace.Tracer
	events *bus.Bus

	out *broadcast.Broadcaster[Frame]

	mu       sync.Mutex
	capture  bool
	running  bool
	lastErr  error
	sequence atomic.Uint64
	rtpTS    atomic.Uint64

	wake chan struct{}
}

// New creates a new audio service instance.
func New(opts ...Option) *Service {
	cfg := &config{
		serviceName: DefaultServiceName,
		bitrateKbps: DefaultBitrateKbps,
		rescan:      DefaultRescan,
	}
	for _, opt := range opts {
		opt.apply(cfg)
	}
	return &Service{
		config: cfg,
		out:    broadcast.New[Frame](16),
		wake:   make(chan struct{}, 1),
	}
}

// Name returns the service name.
func (s *Service) Name() string {
	return s.config.serviceName
}

// Run owns the capture/encode loop until shutdown.
func (s *Service) Run(ctx context.Context, ipcConn nats.InProcessConnProvider) error {
	s.tracer = otel.Tracer(s.config.serviceName)

	ctx, span := s.tracer.Start(ctx, "audiosrv.Run")
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

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Audio service started", "bitrate_kbps", s.config.bitrateKbps)

	s.captureLoop(ctx)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	return ctx.Err()
}

// Start enables capture.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrNotRunning
	}
	if !s.capture {
		s.capture = true
		s.publishState("streaming")
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

// Stop disables capture. Subscribers stay attached and simply starve.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capture {
		s.capture = false
		s.publishState("idle")
	}
	return nil
}

// Subscribe attaches a frame receiver.
func (s *Service) Subscribe() *broadcast.Receiver[Frame] {
	return s.out.Subscribe()
}

// Status is the controller snapshot.
type Status struct {
	State     string `json:"state"`
	Bitrate   int    `json:"bitrate_kbps"`
	LastError string `json:"last_error,omitempty"`
}

// Status returns the controller snapshot.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Bitrate: s.config.bitrateKbps}
	switch {
	case !s.running:
		st.State = "stopped"
	case s.capture:
		st.State = "streaming"
	default:
		st.State = "idle"
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// captureLoop opens the device whenever capture is enabled and feeds the
// encoder, reopening with backoff on device loss.
func (s *Service) captureLoop(ctx context.Context) {
	backoff := 0

	for {
		if ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		capture := s.capture
		s.mu.Unlock()

		if !capture {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
			case <-time.After(s.config.rescan):
			}
			continue
		}

		err := s.captureOnce(ctx)
		if err != nil && ctx.Err() == nil {
			s.mu.Lock()
			s.lastErr = err
			s.mu.Unlock()
			s.publishState("recovering")
			s.logger.WarnContext(ctx, "Audio capture failed, retrying", "error", err)

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

// captureOnce runs one device session until stop, device loss or shutdown.
func (s *Service) captureOnce(ctx context.Context) error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return ErrAlsaError
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	enc, err := opus.NewEncoder(SampleRate, Channels, opus.AppRestrictedLowdelay)
	if err != nil {
		return ErrEncoderInit
	}
	if err := enc.SetBitrate(s.config.bitrateKbps * 1000); err != nil {
		return ErrEncoderInit
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = Channels
	cfg.SampleRate = SampleRate
	cfg.Alsa.NoMMap = 1

	// 100 ms of pending samples; the encoder drains in 20 ms steps.
	ring := make([]int16, 0, RingSamples*Channels)
	var ringMu sync.Mutex
	frameReady := make(chan struct{}, 8)
	var deviceErr atomic.Bool

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, in []byte, frames uint32) {
			ringMu.Lock()
			for i := 0; i+1 < len(in); i += 2 {
				if len(ring) >= RingSamples*Channels {
					// Ring full: oldest samples go.
					copy(ring, ring[FrameSamples*Channels:])
					ring = ring[:len(ring)-FrameSamples*Channels]
				}
				ring = append(ring, int16(binary.LittleEndian.Uint16(in[i:])))
			}
			ready := len(ring) >= FrameSamples*Channels
			ringMu.Unlock()

			if ready {
				select {
				case frameReady <- struct{}{}:
				default:
				}
			}
		},
		Stop: func() {
			deviceErr.Store(true)
			select {
			case frameReady <- struct{}{}:
			default:
			}
		},
	}

	device, err := malgo.InitDevice(mctx.Context, cfg, callbacks)
	if err != nil {
		return ErrAlsaError
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return ErrAlsaError
	}

	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()

	pcm := make([]int16, FrameSamples*Channels)
	buf := make([]byte, 1500)

	for {
		select {
		case <-ctx.Done():
			_ = device.Stop()
			return nil
		case <-frameReady:
		}

		if deviceErr.Load() {
			return ErrAlsaError
		}

		s.mu.Lock()
		capture := s.capture
		s.mu.Unlock()
		if !capture {
			_ = device.Stop()
			return nil
		}

		for {
			ringMu.Lock()
			if len(ring) < FrameSamples*Channels {
				ringMu.Unlock()
				break
			}
			copy(pcm, ring[:FrameSamples*Channels])
			copy(ring, ring[FrameSamples*Channels:])
			ring = ring[:len(ring)-FrameSamples*Channels]
			ringMu.Unlock()

			n, err := enc.Encode(pcm, buf)
			if err != nil {
				continue
			}

			data := make([]byte, n)
			copy(data, buf[:n])

			s.out.Publish(Frame{
				Data:      data,
				Sequence:  s.sequence.Add(1),
				Timestamp: s.rtpTS.Add(FrameSamples),
				Duration:  20 * time.Millisecond,
			})
		}
	}
}

func (s *Service) publishState(state string) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(bus.SystemEvent{
		Type: bus.EventAudioStateChanged,
		Audio: &bus.AudioStateChanged{
			State:   state,
			Bitrate: uint32(s.config.bitrateKbps),
		},
	})
}
