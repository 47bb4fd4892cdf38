// SPDX-License-Identifier: BSD-3-Clause

package operator

import (
	"context"
	"fmt"
	"os"
	"time"

	"cirello.io/oversight/v2"
	"github.com/arunsworld/nursery"
	"github.com/nats-io/nats.go"

	"github.com/one-kvm/one-kvm/pkg/cert"
	configpkg "github.com/one-kvm/one-kvm/pkg/config"
	"github.com/one-kvm/one-kvm/pkg/id"
	"github.com/one-kvm/one-kvm/pkg/log"
	"github.com/one-kvm/one-kvm/pkg/process"
	"github.com/one-kvm/one-kvm/pkg/usb"
	"github.com/one-kvm/one-kvm/pkg/video"
	"github.com/one-kvm/one-kvm/service"
	"github.com/one-kvm/one-kvm/service/atxsrv"
	"github.com/one-kvm/one-kvm/service/audiosrv"
	"github.com/one-kvm/one-kvm/service/hidsrv"
	"github.com/one-kvm/one-kvm/service/ipc"
	"github.com/one-kvm/one-kvm/service/msdsrv"
	"github.com/one-kvm/one-kvm/service/otgsrv"
	"github.com/one-kvm/one-kvm/service/videosrv"
	"github.com/one-kvm/one-kvm/service/webrtcsrv"
)

const defaultLogo = `
 ___  _ __   ___       _  ____   ___ __ ___
/ _ \| '_ \ / _ \_____| |/ /\ \ / / '_ ' _ \
| (_) | | | |  __/_____|   <  \ V /| | | | | |
\___/|_| |_|\___|     |_|\_\  \_/ |_| |_| |_|
`

// Compile-time assertion that Operator implements service.Service.
var _ service.Service = (*Operator)(nil)

// Core is the handler-facing surface: every controller the HTTP host talks
// to, fully wired.
type Core struct {
	Config *configpkg.Store
	Otg    *otgsrv.Service
	Hid    *hidsrv.Service
	Msd    *msdsrv.Service
	Audio  *audiosrv.Service
	Video  *videosrv.Service
	Webrtc *webrtcsrv.Service
	Atx    *atxsrv.Service
}

// Operator supervises the appliance services.
type Operator struct {
	config *config

	ipc  *ipc.IPC
	core *Core
}

// New creates a new operator with the provided options.
func New(opts ...Option) *Operator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(cfg)
	}
	return &Operator{
		config: cfg,
		ipc:    ipc.New(),
	}
}

// Name returns the operator name.
func (s *Operator) Name() string {
	return s.config.name
}

// Core returns the wired controller surface. Nil until Run has built it.
func (s *Operator) Core() *Core {
	return s.core
}

// Run builds the service set from configuration and supervises it until ctx
// ends.
func (s *Operator) Run(ctx context.Context, ipcConn nats.InProcessConnProvider) (err error) {
	if s.config.name == "" {
		return ErrNameEmpty
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s %w: %v", s.Name(), ErrPanicked, r)
		}
	}()

	// Telemetry first so the global logger's OTEL side binds to a real
	// provider.
	s.config.otelSetup()
	l := log.GetGlobalLogger()

	if !s.config.disableLogo {
		l.Info(defaultLogo)
	}

	dataDir := s.config.dataDir
	if dataDir == "" {
		dataDir = os.Getenv(DataDirEnv)
	}
	if dataDir == "" {
		dataDir = DefaultDataDir
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigStore, err)
	}

	store, err := configpkg.Open(dataDir + "/config.db")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfigStore, err)
	}
	defer store.Close()

	applianceID, err := id.GetOrCreatePersistentID("id", dataDir)
	if err != nil {
		l.WarnContext(ctx, "Falling back to ephemeral appliance ID", "error", err)
		applianceID = id.NewID()
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "one-kvm"
	}
	if _, _, err := cert.EnsureSelfSigned(dataDir+"/certs", hostname); err != nil {
		l.WarnContext(ctx, "Could not ensure TLS material", "error", err)
	}

	core, err := s.buildCore(store, dataDir, applianceID)
	if err != nil {
		return err
	}
	s.core = core

	tree := oversight.New(
		oversight.NeverHalt(),
		oversight.DefaultRestartStrategy(),
		oversight.WithLogger(log.NewOversightLogger(l)),
	)

	if ipcConn == nil {
		if err := tree.Add(
			process.New(s.ipc, nil),
			oversight.Transient(),
			oversight.Timeout(s.config.timeout),
			s.ipc.Name(),
		); err != nil {
			return fmt.Errorf("%w %s: %w", ErrAddProcess, s.ipc.Name(), err)
		}
	}

	supervise := func(ctx context.Context, c chan error) {
		c <- tree.Start(ctx)
	}

	spawnProcs := func(ctx context.Context, c chan error) {
		conn := ipcConn
		if conn == nil {
			conn = s.ipc.GetConnProvider()
		}

		// The gadget arbiter goes first; HID blocks on its readiness and
		// MSD reaches it only when a medium is connected. Component
		// shutdown deadlines ride on the supervision timeouts.
		services := []struct {
			svc     service.Service
			timeout time.Duration
		}{
			{core.Otg, 2 * time.Second},
			{core.Video, 500 * time.Millisecond},
			{core.Webrtc, time.Second},
			{core.Hid, 200 * time.Millisecond},
			{core.Msd, 2 * time.Second},
		}
		if core.Audio != nil {
			services = append(services, struct {
				svc     service.Service
				timeout time.Duration
			}{core.Audio, 300 * time.Millisecond})
		}
		if core.Atx != nil {
			services = append(services, struct {
				svc     service.Service
				timeout time.Duration
			}{core.Atx, time.Second})
		}
		for _, extra := range s.config.extraServices {
			services = append(services, struct {
				svc     service.Service
				timeout time.Duration
			}{extra, s.config.timeout})
		}

		for _, entry := range services {
			if err := tree.Add(
				process.New(entry.svc, conn),
				oversight.Transient(),
				oversight.Timeout(entry.timeout),
				entry.svc.Name(),
			); err != nil {
				c <- fmt.Errorf("%w %s: %w", ErrAddProcess, entry.svc.Name(), err)
				return
			}
		}
	}

	l.InfoContext(ctx, "Starting child routines", "service", s.config.name, "data_dir", dataDir)
	return nursery.RunConcurrentlyWithContext(ctx, supervise, spawnProcs)
}

// buildCore constructs every controller from its configuration section.
func (s *Operator) buildCore(store *configpkg.Store, dataDir, applianceID string) (*Core, error) {
	videoCfg, err := configpkg.Get(store, configpkg.SectionVideo, configpkg.DefaultVideo())
	if err != nil {
		return nil, err
	}
	hidCfg, err := configpkg.Get(store, configpkg.SectionHid, configpkg.DefaultHid())
	if err != nil {
		return nil, err
	}
	msdCfg, err := configpkg.Get(store, configpkg.SectionMsd, configpkg.DefaultMsd())
	if err != nil {
		return nil, err
	}
	audioCfg, err := configpkg.Get(store, configpkg.SectionAudio, configpkg.DefaultAudio())
	if err != nil {
		return nil, err
	}
	atxCfg, err := configpkg.Get(store, configpkg.SectionAtx, configpkg.DefaultAtx())
	if err != nil {
		return nil, err
	}
	otgCfg, err := configpkg.Get(store, configpkg.SectionOtg, configpkg.DefaultOtg())
	if err != nil {
		return nil, err
	}
	webrtcCfg, err := configpkg.Get(store, configpkg.SectionWebrtc, configpkg.DefaultWebrtc())
	if err != nil {
		return nil, err
	}

	otg := otgsrv.New(
		otgsrv.WithGadgetConfig(&usb.GadgetConfig{
			Name:         "one-kvm",
			VendorID:     otgCfg.VendorID,
			ProductID:    otgCfg.ProductID,
			SerialNumber: applianceID,
			Manufacturer: otgCfg.Manufacturer,
			Product:      otgCfg.Product,
			MaxPower:     250,
		}),
		otgsrv.WithUDC(otgCfg.Udc),
		otgsrv.WithEndpointCap(otgCfg.MaxEndpoints),
	)

	hid := hidsrv.New(
		hidsrv.WithBackend(hidsrv.BackendType(hidCfg.Backend)),
		hidsrv.WithOtgService(otg),
		hidsrv.WithSerial(hidCfg.SerialPort, hidCfg.SerialBaud, time.Duration(hidCfg.ReadTimeoutMs)*time.Millisecond),
		hidsrv.WithScreenSize(hidCfg.ScreenWidth, hidCfg.ScreenHeight),
	)

	msd := msdsrv.New(
		msdsrv.WithDataDir(dataDir),
		msdsrv.WithDriveSize(msdCfg.DriveSizeMB),
		msdsrv.WithOtgService(otg),
	)

	captureCfg := video.DefaultCaptureConfig()
	captureCfg.Device = videoCfg.Device
	captureCfg.Target = video.Resolution{Width: videoCfg.Width, Height: videoCfg.Height}
	captureCfg.FPS = videoCfg.FPS
	if videoCfg.Format != "" && videoCfg.Format != "auto" {
		for _, f := range video.AllFormats() {
			if f.String() == videoCfg.Format {
				captureCfg.Preferred = []video.PixelFormat{f}
			}
		}
	}

	videoSvc := videosrv.New(
		videosrv.WithCaptureConfig(captureCfg),
		videosrv.WithKeepalive(time.Duration(videoCfg.KeepaliveMs)*time.Millisecond),
		videosrv.WithGopSize(videoCfg.GopSize),
		videosrv.WithBitrate(0, webrtcCfg.MaxBitrateKbps),
	)

	var audio *audiosrv.Service
	if !s.config.disableAudio {
		audio = audiosrv.New(
			audiosrv.WithDevice(audioCfg.Device),
			audiosrv.WithBitrate(audioCfg.BitrateKbps),
			audiosrv.WithRescanInterval(time.Duration(audioCfg.RescanSec)*time.Second),
		)
	}

	// H265 is not offered: no encoder backend exists for it yet, so a
	// configured "h265" entry is dropped rather than producing sessions
	// that can never negotiate.
	var codecs []video.Codec
	for _, name := range webrtcCfg.Codecs {
		for _, c := range []video.Codec{video.CodecH264, video.CodecVP8, video.CodecVP9} {
			if c.String() == name {
				codecs = append(codecs, c)
			}
		}
	}

	webrtc := webrtcsrv.New(
		webrtcsrv.WithStunServer(webrtcCfg.StunServer),
		webrtcsrv.WithCodecs(codecs...),
		webrtcsrv.WithVideoService(videoSvc),
		webrtcsrv.WithAudioService(audio),
		webrtcsrv.WithHidService(hid),
	)

	var atx *atxsrv.Service
	if !s.config.disableAtx {
		switch atxsrv.Driver(atxCfg.Driver) {
		case atxsrv.DriverUsbRelay:
			atx = atxsrv.New(atxsrv.WithUsbRelay(atxCfg.SerialPort))
		default:
			atx = atxsrv.New(atxsrv.WithGpio(atxCfg.Chip, atxCfg.PowerLine, atxCfg.ResetLine, atxCfg.PowerLedLine, atxCfg.HddLedLine))
		}
	}

	return &Core{
		Config: store,
		Otg:    otg,
		Hid:    hid,
		Msd:    msd,
		Audio:  audio,
		Video:  videoSvc,
		Webrtc: webrtc,
		Atx:    atx,
	}, nil
}
