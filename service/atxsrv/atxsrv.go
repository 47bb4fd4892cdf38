// SPDX-License-Identifier: BSD-3-Clause

//go:build linux
// +build linux

package atxsrv

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/warthog618/go-gpiocdev"
	"go.bug.st/serial"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/one-kvm/one-kvm/pkg/bus"
	"github.com/one-kvm/one-kvm/pkg/gpio"
	"github.com/one-kvm/one-kvm/pkg/log"
	"github.com/one-kvm/one-kvm/service"
)

// Compile-time assertion that Service implements service.Service.
var _ service.Service = (*Service)(nil)

// Op names a click operation.
type Op string

const (
	OpPowerShort Op = "power_short"
	OpPowerLong  Op = "power_long"
	OpReset      Op = "reset"
)

// Service is the power controller.
type Service struct {
	config *config
	logger *slog.Logger
	tracer trace.Tracer
	events *bus.Bus

	mu       sync.Mutex
	busy     bool
	running  bool
	powerLed bool
	hddLed   bool
	lastErr  error

	power    *gpiocdev.Line
	reset    *gpiocdev.Line
	ledPower *gpiocdev.Line
	ledHdd   *gpiocdev.Line

	relay serial.Port
}

// New creates a new ATX service instance.
func New(opts ...Option) *Service {
	cfg := &config{
		serviceName: DefaultServiceName,
		driver:      DriverGpio,
		hddLedLine:  -1,
		ledPoll:     DefaultLedPoll,
	}
	for _, opt := range opts {
		opt.apply(cfg)
	}
	return &Service{config: cfg}
}

// Name returns the service name.
func (s *Service) Name() string {
	return s.config.serviceName
}

// Run claims the lines (or opens the relay) and samples the LEDs until
// shutdown.
func (s *Service) Run(ctx context.Context, ipcConn nats.InProcessConnProvider) error {
	s.tracer = otel.Tracer(s.config.serviceName)

	ctx, span := s.tracer.Start(ctx, "atxsrv.Run")
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

	if err := s.openDriver(); err != nil {
		span.RecordError(err)
		return err
	}
	defer s.closeDriver()

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "ATX service started", "driver", s.config.driver)

	ticker := time.NewTicker(s.config.ledPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return ctx.Err()
		case <-ticker.C:
			s.sampleLeds()
		}
	}
}

func (s *Service) openDriver() error {
	switch s.config.driver {
	case DriverGpio:
		power, err := gpio.RequestOutput(s.config.chip, s.config.powerLine, 0)
		if err != nil {
			return ErrDriverUnavailable
		}
		reset, err := gpio.RequestOutput(s.config.chip, s.config.resetLine, 0)
		if err != nil {
			_ = power.Close()
			return ErrDriverUnavailable
		}
		s.power = power
		s.reset = reset

		if s.config.powerLedLine >= 0 {
			if led, err := gpio.RequestInput(s.config.chip, s.config.powerLedLine); err == nil {
				s.ledPower = led
			}
		}
		if s.config.hddLedLine >= 0 {
			if led, err := gpio.RequestInput(s.config.chip, s.config.hddLedLine); err == nil {
				s.ledHdd = led
			}
		}
		return nil

	case DriverUsbRelay:
		port, err := serial.Open(s.config.serialPort, &serial.Mode{BaudRate: 9600})
		if err != nil {
			return ErrDriverUnavailable
		}
		s.relay = port
		return nil
	}
	return ErrInvalidConfiguration
}

func (s *Service) closeDriver() {
	for _, l := range []*gpiocdev.Line{s.power, s.reset, s.ledPower, s.ledHdd} {
		if l != nil {
			_ = l.Close()
		}
	}
	if s.relay != nil {
		_ = s.relay.Close()
	}
}

// PowerShort clicks the power button.
func (s *Service) PowerShort(ctx context.Context) error {
	return s.click(ctx, OpPowerShort, ShortPress, true)
}

// PowerLong holds the power button for a forced power-off.
func (s *Service) PowerLong(ctx context.Context) error {
	return s.click(ctx, OpPowerLong, LongPress, true)
}

// Reset clicks the reset button.
func (s *Service) Reset(ctx context.Context) error {
	return s.click(ctx, OpReset, ShortPress, false)
}

func (s *Service) click(ctx context.Context, op Op, hold time.Duration, powerButton bool) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	if s.busy {
		s.mu.Unlock()
		return ErrAtxBusy
	}
	s.busy = true
	s.mu.Unlock()

	s.publish(op, true)

	var err error
	switch s.config.driver {
	case DriverGpio:
		line := s.power
		if !powerButton {
			line = s.reset
		}
		err = gpio.Pulse(line, hold)
	case DriverUsbRelay:
		err = s.relayPulse(powerButton, hold)
	}

	s.mu.Lock()
	s.busy = false
	s.lastErr = err
	s.mu.Unlock()

	s.publish(op, false)

	if err != nil {
		s.logger.WarnContext(ctx, "ATX click failed", "op", op, "error", err)
	}
	return err
}

// relayPulse drives a common single/dual-channel serial relay board:
// channel 1 is the power button, channel 2 reset.
func (s *Service) relayPulse(powerButton bool, hold time.Duration) error {
	ch := byte(1)
	if !powerButton {
		ch = 2
	}
	on := []byte{0xa0, ch, 0x01, 0xa1 + ch}
	off := []byte{0xa0, ch, 0x00, 0xa0 + ch}

	if _, err := s.relay.Write(on); err != nil {
		return err
	}
	time.Sleep(hold)
	_, err := s.relay.Write(off)
	return err
}

func (s *Service) sampleLeds() {
	if s.ledPower == nil {
		return
	}

	power := readLine(s.ledPower)
	hdd := false
	if s.ledHdd != nil {
		hdd = readLine(s.ledHdd)
	}

	s.mu.Lock()
	changed := power != s.powerLed || hdd != s.hddLed
	s.powerLed = power
	s.hddLed = hdd
	s.mu.Unlock()

	if changed {
		s.publish("", false)
	}
}

func readLine(l *gpiocdev.Line) bool {
	v, err := l.Value()
	return err == nil && v != 0
}

// Status is the controller snapshot.
type Status struct {
	Busy      bool   `json:"busy"`
	PowerLed  bool   `json:"power_led"`
	HddLed    bool   `json:"hdd_led"`
	LastError string `json:"last_error,omitempty"`
}

// Status returns the controller snapshot.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Busy: s.busy, PowerLed: s.powerLed, HddLed: s.hddLed}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func (s *Service) publish(op Op, busy bool) {
	if s.events == nil {
		return
	}

	s.mu.Lock()
	power := s.powerLed
	hdd := s.hddLed
	s.mu.Unlock()

	_ = s.events.Publish(bus.SystemEvent{
		Type: bus.EventAtxStateChanged,
		Atx: &bus.AtxStateChanged{
			Op:    string(op),
			Busy:  busy,
			Power: power,
			HDD:   hdd,
		},
	})
}
