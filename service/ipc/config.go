// SPDX-License-Identifier: BSD-3-Clause

package ipc

import (
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

const (
	// DefaultServiceName is the default name for the IPC service.
	DefaultServiceName = "ipc"

	// DefaultServerName is the default NATS server name.
	DefaultServerName = "one-kvm-ipc"

	// DefaultStartupTimeout is how long to wait for the server to accept connections.
	DefaultStartupTimeout = 10 * time.Second

	// DefaultShutdownTimeout bounds the graceful server shutdown.
	DefaultShutdownTimeout = 5 * time.Second
)

type config struct {
	serviceName     string
	serverName      string
	startupTimeout  time.Duration
	shutdownTimeout time.Duration
	maxPayload      int32
	writeDeadline   time.Duration
}

// Option configures the IPC service.
type Option interface {
	apply(*config)
}

type serviceNameOption struct{ name string }

func (o *serviceNameOption) apply(c *config) { c.serviceName = o.name }

// WithServiceName overrides the service name.
func WithServiceName(name string) Option { return &serviceNameOption{name: name} }

type serverNameOption struct{ name string }

func (o *serverNameOption) apply(c *config) { c.serverName = o.name }

// WithServerName overrides the embedded NATS server name.
func WithServerName(name string) Option { return &serverNameOption{name: name} }

type startupTimeoutOption struct{ d time.Duration }

func (o *startupTimeoutOption) apply(c *config) { c.startupTimeout = o.d }

// WithStartupTimeout overrides the server readiness timeout.
func WithStartupTimeout(d time.Duration) Option { return &startupTimeoutOption{d: d} }

func (c *config) Validate() error {
	if c.serviceName == "" || c.serverName == "" {
		return ErrInvalidConfiguration
	}
	if c.startupTimeout <= 0 {
		return ErrInvalidConfiguration
	}
	return nil
}

func (c *config) toServerOptions() *server.Options {
	return &server.Options{
		ServerName:    c.serverName,
		DontListen:    true,
		MaxPayload:    c.maxPayload,
		WriteDeadline: c.writeDeadline,
		NoSigs:        true,
	}
}
