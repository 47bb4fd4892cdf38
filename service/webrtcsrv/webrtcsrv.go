// SPDX-License-Identifier: BSD-3-Clause

package webrtcsrv

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/one-kvm/one-kvm/pkg/bus"
	"github.com/one-kvm/one-kvm/pkg/log"
	"github.com/one-kvm/one-kvm/pkg/video"
	"github.com/one-kvm/one-kvm/service"
)

// Compile-time assertion that Service implements service.Service.
var _ service.Service = (*Service)(nil)

// Service is the WebRTC session manager.
type Service struct {
	config *config
	logger *slog.Logger
	tracer trace.Tracer
	events *bus.Bus

	api *webrtc.API

	mu         sync.Mutex
	sessions   map[string]*session
	generation uint64
	running    bool
}

// New creates a new WebRTC service instance.
func New(opts ...Option) *Service {
	cfg := &config{
		serviceName: DefaultServiceName,
	}
	for _, opt := range opts {
		opt.apply(cfg)
	}
	return &Service{
		config:   cfg,
		sessions: make(map[string]*session),
	}
}

// Name returns the service name.
func (s *Service) Name() string {
	return s.config.serviceName
}

// Run prepares the WebRTC API and serves sessions until shutdown.
func (s *Service) Run(ctx context.Context, ipcConn nats.InProcessConnProvider) error {
	s.tracer = otel.Tracer(s.config.serviceName)

	ctx, span := s.tracer.Start(ctx, "webrtcsrv.Run")
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

	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	s.api = webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(registry),
	)

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "WebRTC service started", "stun", s.config.stunServer)

	<-ctx.Done()

	// Sessions get a BYE through pc.Close on shutdown.
	s.mu.Lock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*session)
	s.running = false
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}

	return ctx.Err()
}

// Offer is the handler-facing SDP exchange input.
type Offer struct {
	SDP   string `json:"sdp"`
	Codec string `json:"codec,omitempty"`
}

// Answer is the SDP exchange result.
type Answer struct {
	SessionID string `json:"session_id"`
	SDP       string `json:"sdp"`
}

// CreateSession negotiates a new browser session from an SDP offer.
func (s *Service) CreateSession(ctx context.Context, offer Offer) (Answer, error) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return Answer{}, ErrNotRunning
	}
	s.generation++
	generation := s.generation
	s.mu.Unlock()

	codec, err := s.pickCodec(offer.Codec)
	if err != nil {
		return Answer{}, err
	}
	mime, ok := mimeFor(codec)
	if !ok {
		return Answer{}, ErrCodecUnsupported
	}

	pc, err := s.api.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: []string{s.config.stunServer}}},
	})
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %w", ErrNegotiationFailed, err)
	}

	videoTrack, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: mime, ClockRate: 90000},
		"video", "one-kvm",
	)
	if err != nil {
		_ = pc.Close()
		return Answer{}, fmt.Errorf("%w: %w", ErrNegotiationFailed, err)
	}

	sender, err := pc.AddTrack(videoTrack)
	if err != nil {
		_ = pc.Close()
		return Answer{}, fmt.Errorf("%w: %w", ErrNegotiationFailed, err)
	}

	var audioTrack *webrtc.TrackLocalStaticSample
	if s.config.audio != nil {
		audioTrack, err = webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
			"audio", "one-kvm",
		)
		if err == nil {
			if _, err := pc.AddTrack(audioTrack); err != nil {
				audioTrack = nil
			}
		}
	}

	sessionCtx, cancel := context.WithCancel(context.Background())
	sess := &session{
		id:         uuid.New().String(),
		generation: generation,
		codec:      codec,
		pc:         pc,
		videoTrack: videoTrack,
		audioTrack: audioTrack,
		cancel:     cancel,
		logger:     s.logger.With("session", ""),
		parent:     s,
	}
	sess.logger = s.logger.With("session", sess.id)

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		sess.attachDataChannel(dc)
	})

	pc.OnConnectionStateChange(func(st webrtc.PeerConnectionState) {
		switch st {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			s.CloseSession(sess.id)
		}
	})

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offer.SDP,
	}); err != nil {
		cancel()
		_ = pc.Close()
		return Answer{}, fmt.Errorf("%w: %w", ErrNegotiationFailed, err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		cancel()
		_ = pc.Close()
		return Answer{}, fmt.Errorf("%w: %w", ErrNegotiationFailed, err)
	}

	gatherDone := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		cancel()
		_ = pc.Close()
		return Answer{}, fmt.Errorf("%w: %w", ErrNegotiationFailed, err)
	}

	select {
	case <-gatherDone:
	case <-ctx.Done():
		cancel()
		_ = pc.Close()
		return Answer{}, ctx.Err()
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	go sess.pumpVideo(sessionCtx)
	go sess.pumpAudio(sessionCtx)
	go sess.pumpRTCP(sessionCtx, sender)

	s.logger.InfoContext(ctx, "Session created", "session", sess.id, "codec", codec.String())

	return Answer{SessionID: sess.id, SDP: pc.LocalDescription().SDP}, nil
}

// AddICECandidate feeds a trickled candidate into a session.
func (s *Service) AddICECandidate(sessionID string, candidate string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	return sess.pc.AddICECandidate(webrtc.ICECandidateInit{Candidate: candidate})
}

// CloseSession tears a session down. Closing an unknown session is a no-op.
func (s *Service) CloseSession(sessionID string) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if ok {
		sess.close()
		s.logger.Info("Session closed", "session", sessionID)
	}
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Service) pickCodec(preference string) (video.Codec, error) {
	if preference == "" {
		return s.config.codecs[0], nil
	}

	// H265 is rejected here until an encoder backend exists for it; see
	// the registry in service/videosrv.
	switch strings.ToLower(preference) {
	case "h264":
		return video.CodecH264, nil
	case "vp8":
		return video.CodecVP8, nil
	case "vp9":
		return video.CodecVP9, nil
	default:
		return 0, ErrCodecUnsupported
	}
}
