// SPDX-License-Identifier: BSD-3-Clause

package ipc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/one-kvm/one-kvm/pkg/log"
	"github.com/one-kvm/one-kvm/service"
)

// Compile-time assertion that IPC implements service.Service.
var _ service.Service = (*IPC)(nil)

// IPC provides the embedded NATS server acting as the central message bus.
type IPC struct {
	config *config
	server *server.Server
	logger *slog.Logger
	tracer trace.Tracer

	mu    sync.Mutex
	ready chan struct{}
}

// New creates a new IPC service instance.
func New(opts ...Option) *IPC {
	cfg := &config{
		serviceName:     DefaultServiceName,
		serverName:      DefaultServerName,
		startupTimeout:  DefaultStartupTimeout,
		shutdownTimeout: DefaultShutdownTimeout,
		maxPayload:      1 << 20,
		writeDeadline:   2 * time.Second,
	}
	for _, opt := range opts {
		opt.apply(cfg)
	}
	return &IPC{
		config: cfg,
		ready:  make(chan struct{}),
	}
}

// Name returns the service name.
func (s *IPC) Name() string {
	return s.config.serviceName
}

// GetConnProvider returns the server as an in-process connection provider.
// It blocks until the server accepts connections.
func (s *IPC) GetConnProvider() nats.InProcessConnProvider {
	<-s.ready

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server
}

// Run starts the embedded NATS server and blocks until ctx is canceled.
func (s *IPC) Run(ctx context.Context, ipcConn nats.InProcessConnProvider) error {
	s.tracer = otel.Tracer(s.config.serviceName)

	ctx, span := s.tracer.Start(ctx, "ipc.Run")
	defer span.End()

	s.logger = log.GetGlobalLogger().With("service", s.config.serviceName)
	s.logger.InfoContext(ctx, "Starting IPC service", "server_name", s.config.serverName)

	// The IPC service provides the bus; it must not be handed one.
	if ipcConn != nil {
		span.RecordError(ErrExternalIPC)
		return ErrExternalIPC
	}

	if err := s.config.Validate(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	ns, err := server.NewServer(s.config.toServerOptions())
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrServerCreationFailed, err)
	}

	s.mu.Lock()
	s.server = ns
	s.mu.Unlock()

	ns.SetLoggerV2(log.NewNATSLogger(s.logger), false, false, false)
	ns.Start()

	if !ns.ReadyForConnections(s.config.startupTimeout) {
		span.RecordError(ErrServerStartTimeout)
		return ErrServerStartTimeout
	}
	close(s.ready)

	s.logger.InfoContext(ctx, "IPC service ready")

	<-ctx.Done()

	s.logger.InfoContext(ctx, "IPC service shutting down", "reason", ctx.Err())

	done := make(chan struct{})
	go func() {
		ns.Shutdown()
		ns.WaitForShutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.config.shutdownTimeout):
		s.logger.WarnContext(ctx, "NATS server shutdown timed out")
	}

	return ctx.Err()
}
