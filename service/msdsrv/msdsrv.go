// SPDX-License-Identifier: BSD-3-Clause

package msdsrv

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/one-kvm/one-kvm/pkg/bus"
	"github.com/one-kvm/one-kvm/pkg/drive"
	"github.com/one-kvm/one-kvm/pkg/log"
	"github.com/one-kvm/one-kvm/service"
	"github.com/one-kvm/one-kvm/service/otgsrv"
)

// Compile-time assertion that Service implements service.Service.
var _ service.Service = (*Service)(nil)

// ConnectionKind discriminates the exclusive connection state.
type ConnectionKind string

const (
	ConnNone  ConnectionKind = "none"
	ConnImage ConnectionKind = "image"
	ConnDrive ConnectionKind = "drive"
)

// Target describes what to connect. Exactly one of the fields applies:
// Drive selects the writable drive, otherwise ImageID selects an image.
type Target struct {
	Drive   bool
	ImageID string
	CDROM   bool
	RO      bool
}

// Connection is the externally observable connection state.
type Connection struct {
	Kind    ConnectionKind `json:"kind"`
	ImageID string         `json:"image_id,omitempty"`
	CDROM   bool           `json:"cdrom,omitempty"`
	RO      bool           `json:"ro,omitempty"`
}

// Service is the mass-storage controller.
type Service struct {
	config *config
	logger *slog.Logger
	tracer trace.Tracer
	events *bus.Bus

	images *imageStore
	drive  *drive.Drive

	mu      sync.Mutex
	conn    Connection
	handle  otgsrv.MsdHandle
	running bool
	lastErr error
}

// New creates a new MSD service instance.
func New(opts ...Option) *Service {
	cfg := &config{
		serviceName:   DefaultServiceName,
		driveSizeMB:   DefaultDriveSizeMB,
		ejectDebounce: DefaultEjectDebounce,
		ejectPoll:     DefaultEjectPoll,
	}
	for _, opt := range opts {
		opt.apply(cfg)
	}
	return &Service{
		config: cfg,
		conn:   Connection{Kind: ConnNone},
	}
}

// Name returns the service name.
func (s *Service) Name() string {
	return s.config.serviceName
}

// Run prepares the catalog and drive image, then watches for target-side
// ejection until shutdown.
func (s *Service) Run(ctx context.Context, ipcConn nats.InProcessConnProvider) error {
	s.tracer = otel.Tracer(s.config.serviceName)

	ctx, span := s.tracer.Start(ctx, "msdsrv.Run")
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

	images, err := newImageStore(s.config.dataDir)
	if err != nil {
		span.RecordError(err)
		return err
	}

	s.mu.Lock()
	s.images = images
	s.drive = drive.New(filepath.Join(s.config.dataDir, "drive.img"))
	s.running = true
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "MSD service started", "data_dir", s.config.dataDir)

	s.watchEject(ctx)

	// Leave the target cleanly on shutdown.
	_ = s.Disconnect(context.Background())

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	return ctx.Err()
}

// ListImages returns the catalog.
func (s *Service) ListImages() ([]Image, error) {
	st := s.store()
	if st == nil {
		return nil, ErrNotRunning
	}
	return st.list()
}

// Upload stores a new image from r and returns its metadata.
func (s *Service) Upload(name string, readOnly bool, r io.Reader) (Image, error) {
	st := s.store()
	if st == nil {
		return Image{}, ErrNotRunning
	}
	return st.save(name, readOnly, r)
}

// DeleteImage removes an image. The currently connected image cannot be
// deleted.
func (s *Service) DeleteImage(id string) error {
	st := s.store()
	if st == nil {
		return ErrNotRunning
	}

	s.mu.Lock()
	connected := s.conn.Kind == ConnImage && s.conn.ImageID == id
	s.mu.Unlock()
	if connected {
		return ErrImageConnected
	}

	return st.remove(id)
}

// Connect attaches the target to t. An existing connection is torn down
// first, so the observable state always passes through none.
func (s *Service) Connect(ctx context.Context, t Target) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.mu.Unlock()

	if err := s.Disconnect(ctx); err != nil {
		return err
	}

	var (
		backing string
		conn    Connection
	)

	if t.Drive {
		if !s.drive.Exists() {
			if err := s.drive.Init(s.config.driveSizeMB); err != nil {
				return err
			}
		}
		if err := s.drive.Attach(); err != nil {
			return err
		}
		backing = s.drive.Path()
		conn = Connection{Kind: ConnDrive}
	} else {
		img, err := s.store().load(t.ImageID)
		if err != nil {
			return err
		}
		backing = s.store().imagePath(img.ID)
		conn = Connection{Kind: ConnImage, ImageID: img.ID, CDROM: t.CDROM, RO: t.RO || img.ReadOnly}
	}

	handle, err := s.config.otg.AttachMSD(ctx, backing, conn.RO || conn.Kind == ConnImage && conn.CDROM, conn.CDROM)
	if err != nil {
		if t.Drive {
			s.drive.Detach()
		}
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.handle = handle
	s.lastErr = nil
	s.mu.Unlock()

	s.publish(conn, false)
	return nil
}

// Disconnect detaches whatever is connected. Disconnecting while already
// disconnected is a no-op.
func (s *Service) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	handle := s.handle
	s.mu.Unlock()

	if conn.Kind == ConnNone {
		return nil
	}

	if err := s.config.otg.DetachMSD(ctx, handle); err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return err
	}

	if conn.Kind == ConnDrive {
		s.drive.Detach()
	}

	s.mu.Lock()
	s.conn = Connection{Kind: ConnNone}
	s.mu.Unlock()

	s.publish(Connection{Kind: ConnNone}, false)
	return nil
}

// Current returns the observable connection state.
func (s *Service) Current() Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// DriveInfo reports drive capacity.
func (s *Service) DriveInfo() (drive.Info, error) {
	return s.drive.Info()
}

// InitDrive formats a fresh drive image. Refused while connected.
func (s *Service) InitDrive(sizeMB int) error {
	s.mu.Lock()
	busy := s.conn.Kind == ConnDrive
	s.mu.Unlock()
	if busy {
		return ErrMsdBusy
	}
	if sizeMB <= 0 {
		sizeMB = s.config.driveSizeMB
	}
	return s.drive.Init(sizeMB)
}

// ListDriveFiles lists a directory on the drive.
func (s *Service) ListDriveFiles(path string) ([]drive.Entry, error) {
	return s.drive.List(path)
}

// ReadDriveFile streams a drive file into w.
func (s *Service) ReadDriveFile(path string, w io.Writer) error {
	return s.drive.ReadFile(path, w)
}

// WriteDriveFile writes a drive file from r. Refused while attached.
func (s *Service) WriteDriveFile(path string, r io.Reader) error {
	return s.drive.WriteFile(path, r)
}

// CreateDriveDirectory creates a directory on the drive.
func (s *Service) CreateDriveDirectory(path string) error {
	return s.drive.Mkdir(path)
}

// DeleteDriveFile removes a file or empty directory on the drive.
func (s *Service) DeleteDriveFile(path string) error {
	return s.drive.Remove(path)
}

// Status is the controller snapshot.
type Status struct {
	Connection Connection `json:"connection"`
	LastError  string     `json:"last_error,omitempty"`
}

// Status returns the controller snapshot.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Connection: s.conn}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// watchEject polls the LUN backing file. The gadget driver clears it when
// the target ejects the medium; after a debounce the connection is torn
// down and the ejection surfaced.
func (s *Service) watchEject(ctx context.Context) {
	ticker := time.NewTicker(s.config.ejectPoll)
	defer ticker.Stop()

	var clearedAt time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		connected := s.conn.Kind != ConnNone
		conn := s.conn
		s.mu.Unlock()

		if !connected {
			clearedAt = time.Time{}
			continue
		}

		backing, err := s.config.otg.MSDBacking()
		if err != nil || backing != "" {
			clearedAt = time.Time{}
			continue
		}

		if clearedAt.IsZero() {
			clearedAt = time.Now()
			continue
		}
		if time.Since(clearedAt) < s.config.ejectDebounce {
			continue
		}

		s.logger.InfoContext(ctx, "Target ejected medium", "connection", conn.Kind)
		s.publish(conn, true)
		_ = s.Disconnect(ctx)
		clearedAt = time.Time{}
	}
}

func (s *Service) publish(conn Connection, ejected bool) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(bus.SystemEvent{
		Type: bus.EventMsdStateChanged,
		Msd: &bus.MsdStateChanged{
			Connection: string(conn.Kind),
			ImageID:    conn.ImageID,
			CDROM:      conn.CDROM,
			ReadOnly:   conn.RO,
			Ejected:    ejected,
		},
	})
}

func (s *Service) store() *imageStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.images
}
