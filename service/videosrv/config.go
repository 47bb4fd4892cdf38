// SPDX-License-Identifier: BSD-3-Clause

package videosrv

import (
	"time"

	"github.com/one-kvm/one-kvm/pkg/video"
)

const (
	// DefaultServiceName is the default name for the video service.
	DefaultServiceName = "videosrv"

	// DefaultKeepalive is how long identical frames pass before encoding is
	// skipped in favor of replaying the previous output.
	DefaultKeepalive = time.Second

	// DefaultEncoderGrace keeps an idle encoder alive after its last
	// subscriber departs.
	DefaultEncoderGrace = 2 * time.Second

	// DefaultEncodedRing bounds each subscriber's encoded frame queue.
	DefaultEncodedRing = 8

	// DefaultBitrateKbps is the starting encoder bitrate.
	DefaultBitrateKbps = 3000
)

// Mode selects the streaming branch.
type Mode string

const (
	ModeMjpeg  Mode = "mjpeg"
	ModeWebrtc Mode = "webrtc"
)

// reopenSchedule paces device reopen attempts after loss.
var reopenSchedule = []time.Duration{
	200 * time.Millisecond,
	400 * time.Millisecond,
	800 * time.Millisecond,
	1600 * time.Millisecond,
	2 * time.Second,
}

type config struct {
	serviceName string
	capture     *video.CaptureConfig
	mode        Mode

	keepalive       time.Duration
	encoderGrace    time.Duration
	gopSize         uint32
	bitrateKbps     uint32
	maxBitrateKbps  uint32
	registry        *Registry
}

// Option configures the video service.
type Option interface {
	apply(*config)
}

type serviceNameOption struct{ name string }

func (o *serviceNameOption) apply(c *config) { c.serviceName = o.name }

// WithServiceName overrides the service name.
func WithServiceName(name string) Option { return &serviceNameOption{name: name} }

type captureOption struct{ cfg *video.CaptureConfig }

func (o *captureOption) apply(c *config) { c.capture = o.cfg }

// WithCaptureConfig sets the capture device configuration.
func WithCaptureConfig(cfg *video.CaptureConfig) Option { return &captureOption{cfg: cfg} }

type modeOption struct{ m Mode }

func (o *modeOption) apply(c *config) { c.mode = o.m }

// WithMode selects the initial streaming mode.
func WithMode(m Mode) Option { return &modeOption{m: m} }

type keepaliveOption struct{ d time.Duration }

func (o *keepaliveOption) apply(c *config) { c.keepalive = o.d }

// WithKeepalive overrides the still-screen detection window.
func WithKeepalive(d time.Duration) Option { return &keepaliveOption{d: d} }

type graceOption struct{ d time.Duration }

func (o *graceOption) apply(c *config) { c.encoderGrace = o.d }

// WithEncoderGrace overrides the idle encoder disposal delay.
func WithEncoderGrace(d time.Duration) Option { return &graceOption{d: d} }

type gopOption struct{ n uint32 }

func (o *gopOption) apply(c *config) { c.gopSize = o.n }

// WithGopSize overrides the keyframe interval in frames; zero derives one
// keyframe per second from the negotiated rate.
func WithGopSize(n uint32) Option { return &gopOption{n: n} }

type bitrateOption struct{ start, max uint32 }

func (o *bitrateOption) apply(c *config) {
	c.bitrateKbps = o.start
	c.maxBitrateKbps = o.max
}

// WithBitrate sets the starting and ceiling encoder bitrates in kbps.
func WithBitrate(start, max uint32) Option { return &bitrateOption{start: start, max: max} }

type registryOption struct{ r *Registry }

func (o *registryOption) apply(c *config) { c.registry = o.r }

// WithRegistry replaces the encoder registry; tests inject fakes here.
func WithRegistry(r *Registry) Option { return &registryOption{r: r} }

func (c *config) Validate() error {
	if c.serviceName == "" || c.capture == nil {
		return ErrInvalidConfiguration
	}
	if c.mode != ModeMjpeg && c.mode != ModeWebrtc {
		return ErrInvalidConfiguration
	}
	if c.keepalive <= 0 {
		c.keepalive = DefaultKeepalive
	}
	if c.encoderGrace <= 0 {
		c.encoderGrace = DefaultEncoderGrace
	}
	if c.bitrateKbps == 0 {
		c.bitrateKbps = DefaultBitrateKbps
	}
	if c.maxBitrateKbps == 0 {
		c.maxBitrateKbps = 4 * c.bitrateKbps
	}
	if c.registry == nil {
		c.registry = DefaultRegistry()
	}
	return nil
}
