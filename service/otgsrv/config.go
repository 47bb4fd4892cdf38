// SPDX-License-Identifier: BSD-3-Clause

package otgsrv

import (
	"time"

	"github.com/one-kvm/one-kvm/pkg/usb"
)

const (
	// DefaultServiceName is the default name for the OTG service.
	DefaultServiceName = "otgsrv"

	// DefaultBindTimeout bounds the post-rebind UDC state poll.
	DefaultBindTimeout = 2 * time.Second
)

type config struct {
	serviceName  string
	gadget       *usb.GadgetConfig
	udc          string
	bindTimeout  time.Duration
	endpointCap  int
	configfsRoot string
	udcRoot      string
	devRoot      string
	mountConfigFS bool
}

// Option configures the OTG service.
type Option interface {
	apply(*config)
}

type serviceNameOption struct{ name string }

func (o *serviceNameOption) apply(c *config) { c.serviceName = o.name }

// WithServiceName overrides the service name.
func WithServiceName(name string) Option { return &serviceNameOption{name: name} }

type gadgetConfigOption struct{ cfg *usb.GadgetConfig }

func (o *gadgetConfigOption) apply(c *config) { c.gadget = o.cfg }

// WithGadgetConfig overrides the gadget identity.
func WithGadgetConfig(cfg *usb.GadgetConfig) Option { return &gadgetConfigOption{cfg: cfg} }

type udcOption struct{ udc string }

func (o *udcOption) apply(c *config) { c.udc = o.udc }

// WithUDC pins the gadget to a specific UDC instead of the first available.
func WithUDC(udc string) Option { return &udcOption{udc: udc} }

type bindTimeoutOption struct{ d time.Duration }

func (o *bindTimeoutOption) apply(c *config) { c.bindTimeout = o.d }

// WithBindTimeout overrides the UDC state poll budget.
func WithBindTimeout(d time.Duration) Option { return &bindTimeoutOption{d: d} }

type endpointCapOption struct{ n int }

func (o *endpointCapOption) apply(c *config) { c.endpointCap = o.n }

// WithEndpointCap overrides the UDC IN-endpoint budget.
func WithEndpointCap(n int) Option { return &endpointCapOption{n: n} }

type rootsOption struct{ configfs, udc, dev string }

func (o *rootsOption) apply(c *config) {
	c.configfsRoot = o.configfs
	c.udcRoot = o.udc
	c.devRoot = o.dev
	c.mountConfigFS = false
}

// WithRoots points the service at alternate configfs/UDC/dev roots. Used by
// tests to run against a scratch directory.
func WithRoots(configfs, udc, dev string) Option {
	return &rootsOption{configfs: configfs, udc: udc, dev: dev}
}

func (c *config) Validate() error {
	if c.serviceName == "" || c.gadget == nil || c.gadget.Name == "" {
		return ErrInvalidConfiguration
	}
	if c.bindTimeout <= 0 {
		return ErrInvalidConfiguration
	}
	return nil
}
