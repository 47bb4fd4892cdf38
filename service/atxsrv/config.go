// SPDX-License-Identifier: BSD-3-Clause

package atxsrv

import "time"

const (
	// DefaultServiceName is the default name for the ATX service.
	DefaultServiceName = "atxsrv"

	// ShortPress is the momentary button hold for power and reset clicks.
	ShortPress = 300 * time.Millisecond

	// LongPress is the forced power-off hold.
	LongPress = 5 * time.Second

	// DefaultLedPoll is the power LED sampling interval.
	DefaultLedPoll = time.Second
)

// Driver selects the output hardware.
type Driver string

const (
	DriverGpio     Driver = "gpio"
	DriverUsbRelay Driver = "usbrelay"
)

type config struct {
	serviceName string
	driver      Driver

	chip         string
	powerLine    int
	resetLine    int
	powerLedLine int
	hddLedLine   int

	serialPort string

	ledPoll time.Duration
}

// Option configures the ATX service.
type Option interface {
	apply(*config)
}

type serviceNameOption struct{ name string }

func (o *serviceNameOption) apply(c *config) { c.serviceName = o.name }

// WithServiceName overrides the service name.
func WithServiceName(name string) Option { return &serviceNameOption{name: name} }

type gpioOption struct {
	chip                     string
	power, reset, pled, hled int
}

func (o *gpioOption) apply(c *config) {
	c.driver = DriverGpio
	c.chip = o.chip
	c.powerLine = o.power
	c.resetLine = o.reset
	c.powerLedLine = o.pled
	c.hddLedLine = o.hled
}

// WithGpio selects the GPIO driver. Pass -1 for absent LED lines.
func WithGpio(chip string, power, reset, powerLed, hddLed int) Option {
	return &gpioOption{chip: chip, power: power, reset: reset, pled: powerLed, hled: hddLed}
}

type relayOption struct{ port string }

func (o *relayOption) apply(c *config) {
	c.driver = DriverUsbRelay
	c.serialPort = o.port
}

// WithUsbRelay selects the serial relay driver.
func WithUsbRelay(port string) Option { return &relayOption{port: port} }

func (c *config) Validate() error {
	if c.serviceName == "" {
		return ErrInvalidConfiguration
	}
	switch c.driver {
	case DriverGpio:
		if c.chip == "" || c.powerLine < 0 || c.resetLine < 0 {
			return ErrInvalidConfiguration
		}
	case DriverUsbRelay:
		if c.serialPort == "" {
			return ErrInvalidConfiguration
		}
	default:
		return ErrInvalidConfiguration
	}
	if c.ledPoll <= 0 {
		c.ledPoll = DefaultLedPoll
	}
	return nil
}
