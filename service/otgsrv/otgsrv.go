// SPDX-License-Identifier: BSD-3-Clause

package otgsrv

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/one-kvm/one-kvm/pkg/bus"
	"github.com/one-kvm/one-kvm/pkg/log"
	"github.com/one-kvm/one-kvm/pkg/mount"
	"github.com/one-kvm/one-kvm/pkg/usb"
	"github.com/one-kvm/one-kvm/service"
)

// Compile-time assertion that Service implements service.Service.
var _ service.Service = (*Service)(nil)

// HidKind selects a HID function variant.
type HidKind string

const (
	KindKeyboard HidKind = "keyboard"
	KindMouseAbs HidKind = "mouse-abs"
	KindMouseRel HidKind = "mouse-rel"
	KindMouseAlt HidKind = "mouse-alt"
	KindConsumer HidKind = "consumer"
)

func (k HidKind) spec() (usb.HIDSpec, bool) {
	switch k {
	case KindKeyboard:
		return usb.SpecKeyboard(), true
	case KindMouseAbs:
		return usb.SpecMouseAbsolute(), true
	case KindMouseRel, KindMouseAlt:
		return usb.SpecMouseRelative(), true
	case KindConsumer:
		return usb.SpecConsumer(), true
	default:
		return usb.HIDSpec{}, false
	}
}

// HidHandle refers to one created HID function and its character device.
type HidHandle struct {
	Kind       HidKind
	DevicePath string

	instance   string
	generation uint64
}

// MsdHandle refers to the attached mass-storage backing.
type MsdHandle struct {
	generation uint64
}

type hidSlot struct {
	kind HidKind
	cost usb.EndpointCost
}

// Service owns the gadget configfs tree.
type Service struct {
	config *config
	logger *slog.Logger
	tracer trace.Tracer

	// mu is the single coarse gadget lock. Leaf lock: never acquire
	// anything else while holding it.
	mu         sync.Mutex
	gadget     *usb.Gadget
	budget     *usb.Budget
	generation uint64
	udc        string
	hidSlots   map[string]hidSlot
	nextHid    int
	msdActive  bool
	msdCost    usb.EndpointCost
	running    bool
	lastErr    error

	events *bus.Bus
	ready  chan struct{}
}

// New creates a new OTG service instance.
func New(opts ...Option) *Service {
	cfg := &config{
		serviceName:   DefaultServiceName,
		gadget:        usb.DefaultGadgetConfig(),
		bindTimeout:   DefaultBindTimeout,
		endpointCap:   usb.DefaultEndpointBudget,
		configfsRoot:  usb.DefaultConfigFSRoot,
		udcRoot:       usb.DefaultUDCRoot,
		devRoot:       usb.DefaultDevRoot,
		mountConfigFS: true,
	}
	for _, opt := range opts {
		opt.apply(cfg)
	}
	return &Service{
		config:   cfg,
		hidSlots: make(map[string]hidSlot),
		ready:    make(chan struct{}),
	}
}

// Name returns the service name.
func (s *Service) Name() string {
	return s.config.serviceName
}

// WaitReady blocks until the gadget exists and is bound, or ctx ends.
func (s *Service) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run creates the gadget, binds it and keeps it alive until shutdown, then
// unbinds and removes it.
func (s *Service) Run(ctx context.Context, ipcConn nats.InProcessConnProvider) error {
	s.tracer = otel.Tracer(s.config.serviceName)

	ctx, span := s.tracer.Start(ctx, "otgsrv.Run")
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

	if s.config.mountConfigFS {
		if err := mount.EnsureConfigFS(); err != nil {
			s.logger.WarnContext(ctx, "Could not ensure configfs mount", "error", err)
		}
	}

	gadget, err := usb.NewGadgetAt(s.config.gadget, s.config.configfsRoot, s.config.udcRoot, s.config.devRoot)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrGadgetBindFailed, err)
	}

	// A previous unclean shutdown may have left the tree behind.
	if gadget.Exists() {
		s.logger.WarnContext(ctx, "Removing stale gadget tree", "gadget", gadget.Name())
		if err := gadget.Destroy(ctx); err != nil {
			span.RecordError(err)
			return fmt.Errorf("%w: stale gadget: %w", ErrGadgetBindFailed, err)
		}
	}

	// No UDC means no USB at all; fail fast and let the host decide.
	if _, err := gadget.FirstUDC(); err != nil && s.config.udc == "" {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrGadgetBindFailed, err)
	}

	if err := gadget.Create(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrGadgetBindFailed, err)
	}

	s.mu.Lock()
	s.gadget = gadget
	s.budget = usb.NewBudget(s.config.endpointCap)
	s.running = true
	s.mu.Unlock()
	close(s.ready)

	s.logger.InfoContext(ctx, "USB gadget created", "gadget", gadget.Name())

	<-ctx.Done()

	s.logger.InfoContext(ctx, "Tearing down USB gadget", "reason", ctx.Err())

	s.mu.Lock()
	s.running = false
	if err := gadget.Destroy(context.Background()); err != nil {
		s.logger.WarnContext(ctx, "Gadget teardown failed", "error", err)
	}
	s.gadget = nil
	s.mu.Unlock()

	return ctx.Err()
}

// RequestHID creates a HID function of the given kind and returns a handle
// carrying its character device path.
func (s *Service) RequestHID(ctx context.Context, kind HidKind) (HidHandle, error) {
	spec, ok := kind.spec()
	if !ok {
		return HidHandle{}, fmt.Errorf("%w: unknown HID kind %q", ErrInvalidConfiguration, kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return HidHandle{}, ErrNotRunning
	}

	cost := usb.HIDEndpointCost(spec)
	if err := s.budget.Reserve(cost); err != nil {
		return HidHandle{}, ErrGadgetEndpointExhausted
	}

	instance := "usb" + strconv.Itoa(s.nextHid)
	s.nextHid++

	err := s.withRebind(ctx, func() error {
		return s.gadget.CreateHIDFunction(instance, spec)
	}, func() {
		_ = s.gadget.RemoveHIDFunction(instance)
	})
	if err != nil {
		s.budget.Release(cost)
		return HidHandle{}, err
	}

	devPath, err := s.gadget.HIDDevicePath(instance)
	if err != nil {
		s.logger.Warn("HID device path not resolvable", "instance", instance, "error", err)
	}

	s.hidSlots[instance] = hidSlot{kind: kind, cost: cost}

	return HidHandle{
		Kind:       kind,
		DevicePath: devPath,
		instance:   instance,
		generation: s.generation,
	}, nil
}

// ReleaseHID removes the function behind the handle. Releasing twice, or a
// handle from a torn-down generation, is a no-op.
func (s *Service) ReleaseHID(ctx context.Context, h HidHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	slot, ok := s.hidSlots[h.instance]
	if !ok {
		return nil
	}

	err := s.withRebind(ctx, func() error {
		return s.gadget.RemoveHIDFunction(h.instance)
	}, nil)
	if err != nil {
		return err
	}

	s.budget.Release(slot.cost)
	delete(s.hidSlots, h.instance)
	return nil
}

// AttachMSD creates the mass-storage function (if needed) and points its LUN
// at the backing file. Only one attachment may exist at a time.
func (s *Service) AttachMSD(ctx context.Context, backing string, readOnly, cdrom bool) (MsdHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return MsdHandle{}, ErrNotRunning
	}
	if s.msdActive {
		return MsdHandle{}, ErrMsdBusy
	}

	cost := usb.MSDEndpointCost()
	if err := s.budget.Reserve(cost); err != nil {
		return MsdHandle{}, ErrGadgetEndpointExhausted
	}

	err := s.withRebind(ctx, func() error {
		if err := s.gadget.CreateMSDFunction(); err != nil && err != usb.ErrFunctionExists {
			return err
		}
		return s.gadget.SetMSDBacking(backing, readOnly, cdrom)
	}, func() {
		_ = s.gadget.RemoveMSDFunction()
	})
	if err != nil {
		s.budget.Release(cost)
		return MsdHandle{}, err
	}

	s.msdActive = true
	s.msdCost = cost
	return MsdHandle{generation: s.generation}, nil
}

// DetachMSD clears the backing file and removes the function. Idempotent.
func (s *Service) DetachMSD(ctx context.Context, h MsdHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || !s.msdActive {
		return nil
	}

	err := s.withRebind(ctx, func() error {
		if err := s.gadget.ClearMSDBacking(); err != nil {
			return err
		}
		return s.gadget.RemoveMSDFunction()
	}, nil)
	if err != nil {
		return err
	}

	s.budget.Release(s.msdCost)
	s.msdActive = false
	return nil
}

// MSDBacking exposes the LUN's current backing file; "" means the target
// ejected the medium or nothing is attached.
func (s *Service) MSDBacking() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return "", ErrNotRunning
	}
	return s.gadget.MSDBacking()
}

// Rebind unbinds and rebinds the UDC without mutating functions.
func (s *Service) Rebind(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrNotRunning
	}
	return s.withRebind(ctx, func() error { return nil }, nil)
}

// Status is the service snapshot.
type Status struct {
	Running       bool   `json:"running"`
	Bound         bool   `json:"bound"`
	UDC           string `json:"udc"`
	Generation    uint64 `json:"generation"`
	EndpointsUsed int    `json:"endpoints_used"`
	EndpointsFree int    `json:"endpoints_free"`
	LastError     string `json:"last_error,omitempty"`
}

// Status returns the current service snapshot.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:    s.running,
		UDC:        s.udc,
		Generation: s.generation,
	}
	if s.budget != nil {
		st.EndpointsUsed = s.budget.InUse()
		st.EndpointsFree = s.budget.Free()
	}
	st.Bound = s.udc != ""
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// withRebind runs one configfs mutation under the unbind/rebind algorithm.
// Callers hold s.mu. rollback, if non-nil, undoes the mutation when the
// rebind fails so no partial binding survives.
func (s *Service) withRebind(ctx context.Context, mutate func() error, rollback func()) error {
	// Unbinding an unbound gadget is fine; first allocation runs unbound.
	if err := s.gadget.Unbind(ctx); err != nil && err != usb.ErrGadgetNotBound {
		s.lastErr = err
		return fmt.Errorf("%w: unbind: %w", ErrGadgetBindFailed, err)
	}
	s.udc = ""

	if err := mutate(); err != nil {
		s.lastErr = err
		// Try to restore service even though the mutation failed.
		if udc, berr := s.gadget.Bind(ctx, s.config.udc); berr == nil {
			s.udc = udc
		}
		return err
	}

	udc, err := s.gadget.Bind(ctx, s.config.udc)
	if err != nil {
		s.lastErr = err
		if rollback != nil {
			rollback()
			if udc, berr := s.gadget.Bind(ctx, s.config.udc); berr == nil {
				s.udc = udc
			}
		}
		return fmt.Errorf("%w: %w", ErrGadgetBindFailed, err)
	}
	s.udc = udc

	if err := s.gadget.WaitConnected(ctx, udc, s.config.bindTimeout); err != nil {
		// Deliberately no rollback: the tree is valid, the link is not.
		// Operator action (replug, Rebind) is required.
		s.lastErr = ErrGadgetStuck
		s.emit(false)
		return ErrGadgetStuck
	}

	s.generation++
	s.lastErr = nil
	s.emit(true)
	return nil
}

func (s *Service) emit(ok bool) {
	if s.events == nil {
		return
	}
	if ok {
		_ = s.events.Publish(bus.SystemEvent{
			Type:   bus.EventDeviceInfo,
			Time:   time.Now(),
			Device: &bus.DeviceInfo{Device: "udc:" + s.udc},
		})
		return
	}
	_ = s.events.Publish(bus.SystemEvent{
		Type:  bus.EventError,
		Time:  time.Now(),
		Error: &bus.ErrorEvent{Component: s.config.serviceName, Message: ErrGadgetStuck.Error()},
	})
}
