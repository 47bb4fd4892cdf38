// SPDX-License-Identifier: BSD-3-Clause

package hidsrv

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/one-kvm/one-kvm/pkg/bus"
	"github.com/one-kvm/one-kvm/pkg/hid"
	"github.com/one-kvm/one-kvm/pkg/log"
	"github.com/one-kvm/one-kvm/service"
)

// Compile-time assertion that Service implements service.Service.
var _ service.Service = (*Service)(nil)

// job runs on the worker goroutine against the active backend. The queue is
// strict FIFO with one job in flight, which is what makes the target's view
// of input linearizable.
type job func(b backend)

// Service is the HID controller.
type Service struct {
	config *config
	logger *slog.Logger
	tracer trace.Tracer
	events *bus.Bus

	queue chan job

	mu          sync.RWMutex
	backend     backend
	backendType BackendType
	keyboard    hid.KeyboardState
	buttons     byte
	lastX       uint16
	lastY       uint16
	screenW     uint32
	screenH     uint32
	lastErr     error
	running     bool
}

// New creates a new HID service instance.
func New(opts ...Option) *Service {
	cfg := &config{
		serviceName:      DefaultServiceName,
		backend:          BackendNone,
		queueDepth:       DefaultQueueDepth,
		failureThreshold: DefaultFailureThreshold,
		failureWindow:    DefaultFailureWindow,
	}
	for _, opt := range opts {
		opt.apply(cfg)
	}
	return &Service{
		config:  cfg,
		queue:   make(chan job, cfg.queueDepth),
		screenW: cfg.screenWidth,
		screenH: cfg.screenHeight,
	}
}

// Name returns the service name.
func (s *Service) Name() string {
	return s.config.serviceName
}

// Run initializes the configured backend, starts the send worker and the
// health monitor, and blocks until shutdown.
func (s *Service) Run(ctx context.Context, ipcConn nats.InProcessConnProvider) error {
	s.tracer = otel.Tracer(s.config.serviceName)

	ctx, span := s.tracer.Start(ctx, "hidsrv.Run")
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

	b, err := s.buildBackend(ctx, s.config.backend)
	if err != nil {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "Backend initialization failed", "backend", s.config.backend, "error", err)
		// Run degraded with no backend rather than dying; the monitor
		// keeps reporting the failure and SwitchBackend can recover.
		b = noneBackend{}
	}

	s.mu.Lock()
	s.backend = b
	s.backendType = s.config.backend
	s.running = true
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "HID service started", "backend", s.config.backend)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.worker(ctx)
	}()
	go func() {
		defer wg.Done()
		s.monitor(ctx)
	}()

	<-ctx.Done()

	wg.Wait()

	s.mu.Lock()
	s.running = false
	if s.backend != nil {
		_ = s.backend.close(context.Background())
	}
	s.mu.Unlock()

	return ctx.Err()
}

func (s *Service) buildBackend(ctx context.Context, t BackendType) (backend, error) {
	switch t {
	case BackendOtg:
		b := newOtgBackend(s.config.otg, s.logger, s.config.failureThreshold, s.config.failureWindow)
		if err := s.config.otg.WaitReady(ctx); err != nil {
			return nil, err
		}
		if err := b.init(ctx); err != nil {
			return nil, err
		}
		return b, nil
	case BackendSerial:
		b := newSerialBackend(s.config.serialPort, s.config.serialBaud, s.config.readTimeout, s.logger, s.config.failureThreshold, s.config.failureWindow)
		if err := b.init(ctx); err != nil {
			return nil, err
		}
		return b, nil
	default:
		return noneBackend{}, nil
	}
}

// worker executes queued jobs in order against the active backend.
func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			s.mu.RLock()
			b := s.backend
			s.mu.RUnlock()
			j(b)
		}
	}
}

func (s *Service) enqueue(j job) error {
	s.mu.RLock()
	running := s.running
	st := ""
	if s.backend != nil {
		st = s.backend.state()
	}
	s.mu.RUnlock()

	if !running {
		return ErrHidUnavailable
	}
	if st == "failed" || st == "disabled" {
		return ErrHidUnavailable
	}

	select {
	case s.queue <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// SendKey handles one key event. Modifier usages fold into the modifier
// byte; regular keys go into the six-slot array with roll-over handling.
func (s *Service) SendKey(ev hid.KeyEvent) error {
	return s.enqueue(func(b backend) {
		s.mu.Lock()
		s.keyboard.SetModifiers(ev.Modifiers)
		if !hid.IsModifier(ev.Usage) {
			if ev.Down {
				s.keyboard.Press(ev.Usage)
			} else {
				s.keyboard.Release(ev.Usage)
			}
		}
		report := s.keyboard.Report()
		s.mu.Unlock()

		s.record(b.sendKeyboard(report))
	})
}

// SendKeyCode translates a browser key code and handles it.
func (s *Service) SendKeyCode(code string, down bool, modifiers byte) error {
	usage, err := hid.UsageForCode(code)
	if err != nil {
		return err
	}
	return s.SendKey(hid.KeyEvent{Usage: usage, Down: down, Modifiers: modifiers})
}

// SendMouse handles one pointer event.
func (s *Service) SendMouse(ev hid.MouseEvent) error {
	return s.enqueue(func(b backend) {
		s.mu.Lock()
		switch ev.Kind {
		case hid.MouseBtnDown:
			s.buttons |= hid.ButtonBit(ev.Button)
		case hid.MouseBtnUp:
			s.buttons &^= hid.ButtonBit(ev.Button)
		case hid.MouseMoveAbs:
			s.lastX = uint16(ev.X)
			s.lastY = uint16(ev.Y)
		}
		buttons := s.buttons
		x, y := s.lastX, s.lastY
		s.mu.Unlock()

		switch ev.Kind {
		case hid.MouseMoveAbs:
			s.record(b.sendMouseAbs(buttons, x, y, 0))
		case hid.MouseMoveRel:
			s.record(b.sendMouseRel(buttons, clamp8(ev.X), clamp8(ev.Y), 0))
		case hid.MouseBtnDown, hid.MouseBtnUp:
			if b.supportsAbsolute() {
				s.record(b.sendMouseAbs(buttons, x, y, 0))
			} else {
				s.record(b.sendMouseRel(buttons, 0, 0, 0))
			}
		case hid.MouseScroll:
			if b.supportsAbsolute() {
				s.record(b.sendMouseAbs(buttons, x, y, ev.Wheel))
			} else {
				s.record(b.sendMouseRel(buttons, 0, 0, ev.Wheel))
			}
		}
	})
}

// SendConsumer handles a media key. At most one usage is active; sending a
// new usage implicitly releases the previous one on the device.
func (s *Service) SendConsumer(ev hid.ConsumerEvent) error {
	return s.enqueue(func(b backend) {
		s.record(b.sendConsumer(ev.Usage))
	})
}

// Reset emits release-all reports on every device.
func (s *Service) Reset() error {
	return s.enqueue(func(b backend) {
		s.mu.Lock()
		s.keyboard.Clear()
		s.buttons = 0
		report := s.keyboard.Report()
		x, y := s.lastX, s.lastY
		s.mu.Unlock()

		s.record(b.sendKeyboard(report))
		if b.supportsAbsolute() {
			s.record(b.sendMouseAbs(0, x, y, 0))
		} else {
			s.record(b.sendMouseRel(0, 0, 0, 0))
		}
		s.record(b.sendConsumer(0))
	})
}

// SwitchBackend atomically swaps the output path. Outstanding sends finish
// on the old backend; the swap itself runs as a queued job, so everything
// enqueued afterwards lands on the new one.
func (s *Service) SwitchBackend(ctx context.Context, t BackendType) error {
	done := make(chan error, 1)

	err := s.enqueueSwap(func(old backend) {
		nb, err := s.buildBackend(ctx, t)
		if err != nil {
			done <- err
			return
		}

		_ = old.close(ctx)

		s.mu.Lock()
		s.backend = nb
		s.backendType = t
		s.keyboard.Clear()
		s.buttons = 0
		s.mu.Unlock()

		s.publishState()
		done <- nil
	})
	if err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueueSwap bypasses the failed-state gate so a dead backend can still be
// replaced.
func (s *Service) enqueueSwap(j job) error {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	if !running {
		return ErrHidUnavailable
	}

	select {
	case s.queue <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// Reinit clears a failed backend's error state and reopens its devices.
func (s *Service) Reinit(ctx context.Context) error {
	return s.enqueueSwap(func(b backend) {
		if ob, ok := b.(*otgBackend); ok {
			ob.reinitDevices(ctx)
		}
		s.publishState()
	})
}

// SupportsAbsoluteMouse reports whether the active backend can position the
// pointer absolutely.
func (s *Service) SupportsAbsoluteMouse() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.backend == nil {
		return false
	}
	return s.backend.supportsAbsolute()
}

// SetScreenSize updates the recorded target screen resolution. Absolute
// coordinates are not scaled by it.
func (s *Service) SetScreenSize(w, h uint32) {
	s.mu.Lock()
	s.screenW, s.screenH = w, h
	s.mu.Unlock()
}

// Status is the controller snapshot.
type Status struct {
	Backend   string `json:"backend"`
	State     string `json:"state"`
	Absolute  bool   `json:"absolute"`
	LastError string `json:"last_error,omitempty"`
}

// Status returns the controller snapshot.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{Backend: string(s.backendType)}
	if s.backend != nil {
		st.State = s.backend.state()
		st.Absolute = s.backend.supportsAbsolute()
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// Available reports whether events are currently accepted.
func (s *Service) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running || s.backend == nil {
		return false
	}
	st := s.backend.state()
	return st != "failed" && st != "disabled"
}

func (s *Service) record(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// monitor samples backend health at 1 Hz, publishes transitions and LED
// changes.
func (s *Service) monitor(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastState string
	var leds <-chan byte

	s.mu.RLock()
	if ob, ok := s.backend.(*otgBackend); ok {
		leds = ob.leds()
	}
	s.mu.RUnlock()

	for {
		select {
		case <-ctx.Done():
			return

		case led := <-ledsOrNil(leds):
			s.publishLeds(led)

		case <-ticker.C:
			s.mu.RLock()
			st := ""
			if s.backend != nil {
				st = s.backend.state()
			}
			s.mu.RUnlock()

			if st != lastState {
				lastState = st
				s.publishState()
			}
		}
	}
}

func ledsOrNil(ch <-chan byte) <-chan byte {
	if ch == nil {
		return make(chan byte)
	}
	return ch
}

func (s *Service) publishState() {
	if s.events == nil {
		return
	}
	st := s.Status()
	_ = s.events.Publish(bus.SystemEvent{
		Type: bus.EventHidStateChanged,
		Hid:  &bus.HidStateChanged{Backend: st.Backend, State: st.State},
	})
}

func (s *Service) publishLeds(led byte) {
	if s.events == nil {
		return
	}
	st := s.Status()
	_ = s.events.Publish(bus.SystemEvent{
		Type: bus.EventHidStateChanged,
		Hid: &bus.HidStateChanged{
			Backend: st.Backend,
			State:   st.State,
			Leds: &bus.Leds{
				Num:    led&0x01 != 0,
				Caps:   led&0x02 != 0,
				Scroll: led&0x04 != 0,
			},
		},
	})
}

func clamp8(v int16) int8 {
	if v > 127 {
		return 127
	}
	if v < -127 {
		return -127
	}
	return int8(v)
}
