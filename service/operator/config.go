// SPDX-License-Identifier: BSD-3-Clause

package operator

import (
	"log/slog"
	"time"

	"github.com/one-kvm/one-kvm/pkg/log"
	"github.com/one-kvm/one-kvm/pkg/telemetry"
	"github.com/one-kvm/one-kvm/service"
)

const (
	// DefaultDataDir is where persistent state lives unless DATA_DIR says
	// otherwise.
	DefaultDataDir = "/etc/one-kvm"

	// DataDirEnv is the environment override for the data directory.
	DataDirEnv = "DATA_DIR"
)

type config struct {
	name        string
	dataDir     string
	timeout     time.Duration
	disableLogo bool
	otelSetup   func()
	logger      *slog.Logger

	disableAtx   bool
	disableAudio bool

	extraServices []service.Service
}

// Option configures the operator.
type Option interface {
	apply(*config)
}

type nameOption struct{ name string }

func (o *nameOption) apply(c *config) { c.name = o.name }

// WithName overrides the operator name.
func WithName(name string) Option { return &nameOption{name: name} }

type dataDirOption struct{ dir string }

func (o *dataDirOption) apply(c *config) { c.dataDir = o.dir }

// WithDataDir overrides the data directory (normally DATA_DIR or the
// default).
func WithDataDir(dir string) Option { return &dataDirOption{dir: dir} }

type timeoutOption struct{ d time.Duration }

func (o *timeoutOption) apply(c *config) { c.timeout = o.d }

// WithTimeout sets the per-service supervision timeout.
func WithTimeout(d time.Duration) Option { return &timeoutOption{d: d} }

type disableLogoOption struct{}

func (o *disableLogoOption) apply(c *config) { c.disableLogo = true }

// DisableLogo suppresses the startup banner.
func DisableLogo() Option { return &disableLogoOption{} }

type disableAtxOption struct{}

func (o *disableAtxOption) apply(c *config) { c.disableAtx = true }

// DisableAtx skips the power-control service on boards without ATX wiring.
func DisableAtx() Option { return &disableAtxOption{} }

type disableAudioOption struct{}

func (o *disableAudioOption) apply(c *config) { c.disableAudio = true }

// DisableAudio skips the audio service.
func DisableAudio() Option { return &disableAudioOption{} }

type extraServicesOption struct{ svcs []service.Service }

func (o *extraServicesOption) apply(c *config) {
	c.extraServices = append(c.extraServices, o.svcs...)
}

// WithExtraServices runs additional services (the HTTP host, typically)
// under the same supervision tree.
func WithExtraServices(svcs ...service.Service) Option {
	return &extraServicesOption{svcs: svcs}
}

func defaultConfig() *config {
	return &config{
		name:      "operator",
		timeout:   10 * time.Second,
		otelSetup: telemetry.DefaultSetup,
		logger:    log.NewDefaultLogger(),
	}
}
