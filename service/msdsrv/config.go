// SPDX-License-Identifier: BSD-3-Clause

package msdsrv

import (
	"time"

	"github.com/one-kvm/one-kvm/service/otgsrv"
)

const (
	// DefaultServiceName is the default name for the MSD service.
	DefaultServiceName = "msdsrv"

	// DefaultDriveSizeMB sizes the writable drive image on first use.
	DefaultDriveSizeMB = 256

	// DefaultEjectDebounce delays the auto-disconnect after a target eject.
	DefaultEjectDebounce = 500 * time.Millisecond

	// DefaultEjectPoll is the LUN backing-file poll interval.
	DefaultEjectPoll = 500 * time.Millisecond
)

type config struct {
	serviceName   string
	dataDir       string
	driveSizeMB   int
	ejectDebounce time.Duration
	ejectPoll     time.Duration
	otg           *otgsrv.Service
}

// Option configures the MSD service.
type Option interface {
	apply(*config)
}

type serviceNameOption struct{ name string }

func (o *serviceNameOption) apply(c *config) { c.serviceName = o.name }

// WithServiceName overrides the service name.
func WithServiceName(name string) Option { return &serviceNameOption{name: name} }

type dataDirOption struct{ dir string }

func (o *dataDirOption) apply(c *config) { c.dataDir = o.dir }

// WithDataDir sets the directory holding images/ and drive.img.
func WithDataDir(dir string) Option { return &dataDirOption{dir: dir} }

type driveSizeOption struct{ mb int }

func (o *driveSizeOption) apply(c *config) { c.driveSizeMB = o.mb }

// WithDriveSize sets the drive image size used on first initialization.
func WithDriveSize(mb int) Option { return &driveSizeOption{mb: mb} }

type otgOption struct{ s *otgsrv.Service }

func (o *otgOption) apply(c *config) { c.otg = o.s }

// WithOtgService injects the gadget arbiter.
func WithOtgService(s *otgsrv.Service) Option { return &otgOption{s: s} }

func (c *config) Validate() error {
	if c.serviceName == "" || c.dataDir == "" || c.otg == nil {
		return ErrInvalidConfiguration
	}
	if c.driveSizeMB <= 0 {
		c.driveSizeMB = DefaultDriveSizeMB
	}
	return nil
}
