// SPDX-License-Identifier: BSD-3-Clause

package webrtcsrv

import (
	"github.com/one-kvm/one-kvm/pkg/video"
	"github.com/one-kvm/one-kvm/service/audiosrv"
	"github.com/one-kvm/one-kvm/service/hidsrv"
	"github.com/one-kvm/one-kvm/service/videosrv"
)

const (
	// DefaultServiceName is the default name for the WebRTC service.
	DefaultServiceName = "webrtcsrv"

	// DefaultStunServer is used when the configuration does not name one.
	DefaultStunServer = "stun:stun.l.google.com:19302"
)

type config struct {
	serviceName string
	stunServer  string
	codecs      []video.Codec

	video *videosrv.Service
	audio *audiosrv.Service
	hid   *hidsrv.Service
}

// Option configures the WebRTC service.
type Option interface {
	apply(*config)
}

type serviceNameOption struct{ name string }

func (o *serviceNameOption) apply(c *config) { c.serviceName = o.name }

// WithServiceName overrides the service name.
func WithServiceName(name string) Option { return &serviceNameOption{name: name} }

type stunOption struct{ url string }

func (o *stunOption) apply(c *config) { c.stunServer = o.url }

// WithStunServer sets the STUN server URL.
func WithStunServer(url string) Option { return &stunOption{url: url} }

type codecsOption struct{ codecs []video.Codec }

func (o *codecsOption) apply(c *config) { c.codecs = o.codecs }

// WithCodecs sets the codec preference order offered to browsers.
func WithCodecs(codecs ...video.Codec) Option { return &codecsOption{codecs: codecs} }

type videoOption struct{ s *videosrv.Service }

func (o *videoOption) apply(c *config) { c.video = o.s }

// WithVideoService injects the stream manager.
func WithVideoService(s *videosrv.Service) Option { return &videoOption{s: s} }

type audioOption struct{ s *audiosrv.Service }

func (o *audioOption) apply(c *config) { c.audio = o.s }

// WithAudioService injects the audio controller.
func WithAudioService(s *audiosrv.Service) Option { return &audioOption{s: s} }

type hidOption struct{ s *hidsrv.Service }

func (o *hidOption) apply(c *config) { c.hid = o.s }

// WithHidService injects the input controller for data channel events.
func WithHidService(s *hidsrv.Service) Option { return &hidOption{s: s} }

func (c *config) Validate() error {
	if c.serviceName == "" || c.video == nil {
		return ErrInvalidConfiguration
	}
	if c.stunServer == "" {
		c.stunServer = DefaultStunServer
	}

	// Keep only codecs the session layer can actually serve; a configured
	// codec with no RTP mime or encoder backend must not become the
	// default preference.
	serveable := c.codecs[:0]
	for _, codec := range c.codecs {
		if _, ok := mimeFor(codec); ok {
			serveable = append(serveable, codec)
		}
	}
	c.codecs = serveable

	if len(c.codecs) == 0 {
		c.codecs = []video.Codec{video.CodecH264, video.CodecVP8}
	}
	return nil
}
