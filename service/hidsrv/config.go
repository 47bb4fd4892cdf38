// SPDX-License-Identifier: BSD-3-Clause

package hidsrv

import (
	"time"

	"github.com/one-kvm/one-kvm/service/otgsrv"
)

const (
	// DefaultServiceName is the default name for the HID service.
	DefaultServiceName = "hidsrv"

	// DefaultQueueDepth bounds the pending report queue.
	DefaultQueueDepth = 256

	// DefaultFailureThreshold is the consecutive-failure count that fails a
	// backend.
	DefaultFailureThreshold = 5

	// DefaultFailureWindow is the window the failures must fall within.
	DefaultFailureWindow = 10 * time.Second
)

// BackendType selects the HID output path.
type BackendType string

const (
	BackendOtg    BackendType = "otg"
	BackendSerial BackendType = "ch9329"
	BackendNone   BackendType = "none"
)

type config struct {
	serviceName string
	backend     BackendType

	serialPort  string
	serialBaud  int
	readTimeout time.Duration

	screenWidth  uint32
	screenHeight uint32

	queueDepth       int
	failureThreshold int
	failureWindow    time.Duration

	otg *otgsrv.Service
}

// Option configures the HID service.
type Option interface {
	apply(*config)
}

type serviceNameOption struct{ name string }

func (o *serviceNameOption) apply(c *config) { c.serviceName = o.name }

// WithServiceName overrides the service name.
func WithServiceName(name string) Option { return &serviceNameOption{name: name} }

type backendOption struct{ t BackendType }

func (o *backendOption) apply(c *config) { c.backend = o.t }

// WithBackend selects the initial backend.
func WithBackend(t BackendType) Option { return &backendOption{t: t} }

type serialOption struct {
	port    string
	baud    int
	timeout time.Duration
}

func (o *serialOption) apply(c *config) {
	c.serialPort = o.port
	c.serialBaud = o.baud
	c.readTimeout = o.timeout
}

// WithSerial configures the CH9329 bridge port.
func WithSerial(port string, baud int, readTimeout time.Duration) Option {
	return &serialOption{port: port, baud: baud, timeout: readTimeout}
}

type screenOption struct{ w, h uint32 }

func (o *screenOption) apply(c *config) {
	c.screenWidth = o.w
	c.screenHeight = o.h
}

// WithScreenSize records the target screen resolution. Absolute coordinates
// are sent in the 0..32767 range as received; they are not scaled by it.
func WithScreenSize(w, h uint32) Option { return &screenOption{w: w, h: h} }

type otgOption struct{ s *otgsrv.Service }

func (o *otgOption) apply(c *config) { c.otg = o.s }

// WithOtgService injects the gadget arbiter; required for the otg backend.
func WithOtgService(s *otgsrv.Service) Option { return &otgOption{s: s} }

func (c *config) Validate() error {
	if c.serviceName == "" {
		return ErrInvalidConfiguration
	}
	switch c.backend {
	case BackendOtg:
		if c.otg == nil {
			return ErrInvalidConfiguration
		}
	case BackendSerial:
		if c.serialPort == "" || c.serialBaud <= 0 {
			return ErrInvalidConfiguration
		}
	case BackendNone:
	default:
		return ErrInvalidConfiguration
	}
	if c.queueDepth <= 0 {
		c.queueDepth = DefaultQueueDepth
	}
	return nil
}
