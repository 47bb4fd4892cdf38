// SPDX-License-Identifier: BSD-3-Clause

package audiosrv

import "time"

const (
	// DefaultServiceName is the default name for the audio service.
	DefaultServiceName = "audiosrv"

	// SampleRate is the fixed capture and encode rate.
	SampleRate = 48000

	// Channels is the fixed channel count.
	Channels = 2

	// FrameSamples is one Opus frame: 20 ms at 48 kHz.
	FrameSamples = 960

	// RingSamples is the capture ring: 100 ms.
	RingSamples = 4800

	// DefaultBitrateKbps is the stock Opus bitrate.
	DefaultBitrateKbps = 48

	// DefaultRescan is the device hot-plug rescan interval.
	DefaultRescan = 5 * time.Second
)

// validBitrates are the accepted Opus bitrates in kbps.
var validBitrates = map[int]bool{24: true, 48: true, 64: true, 96: true}

type config struct {
	serviceName string
	device      string
	bitrateKbps int
	rescan      time.Duration
}

// Option configures the audio service.
type Option interface {
	apply(*config)
}

type serviceNameOption struct{ name string }

func (o *serviceNameOption) apply(c *config) { c.serviceName = o.name }

// WithServiceName overrides the service name.
func WithServiceName(name string) Option { return &serviceNameOption{name: name} }

type deviceOption struct{ device string }

func (o *deviceOption) apply(c *config) { c.device = o.device }

// WithDevice records a capture device name. Capture always opens the system
// default device; the name is not matched against the available devices.
func WithDevice(device string) Option { return &deviceOption{device: device} }

type bitrateOption struct{ kbps int }

func (o *bitrateOption) apply(c *config) { c.bitrateKbps = o.kbps }

// WithBitrate sets the Opus bitrate in kbps (24, 48, 64 or 96).
func WithBitrate(kbps int) Option { return &bitrateOption{kbps: kbps} }

type rescanOption struct{ d time.Duration }

func (o *rescanOption) apply(c *config) { c.rescan = o.d }

// WithRescanInterval sets the hot-plug rescan interval.
func WithRescanInterval(d time.Duration) Option { return &rescanOption{d: d} }

func (c *config) Validate() error {
	if c.serviceName == "" {
		return ErrInvalidConfiguration
	}
	if !validBitrates[c.bitrateKbps] {
		c.bitrateKbps = DefaultBitrateKbps
	}
	if c.rescan <= 0 {
		c.rescan = DefaultRescan
	}
	return nil
}
