// SPDX-License-Identifier: BSD-3-Clause

//go:build linux
// +build linux

package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"
)

// Capturer owns one V4L2 capture device. Exactly one capturer may hold a
// device at a time; the fd is owned by the capture loop and never shared.
type Capturer struct {
	config *CaptureConfig

	mu       sync.Mutex
	dev      *device.Device
	neg      Negotiation
	started  bool
	sequence atomic.Uint64

	pool sync.Pool
}

// NewCapturer creates a capturer for the configured device. The device is
// not touched until Open.
func NewCapturer(config *CaptureConfig) (*Capturer, error) {
	if config == nil {
		return nil, ErrInvalidConfig
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Capturer{config: config}, nil
}

// Open probes the device, negotiates format/resolution/rate and configures
// the driver. It does not start streaming.
func (c *Capturer) Open(ctx context.Context) (Negotiation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev != nil {
		return c.neg, nil
	}

	caps, err := probeCaps(c.config.Device)
	if err != nil {
		return Negotiation{}, err
	}

	neg, err := Negotiate(caps, Request{
		Preferred: c.config.Preferred,
		Target:    c.config.Target,
		FPS:       c.config.FPS,
	})
	if err != nil {
		return Negotiation{}, err
	}

	dev, err := device.Open(c.config.Device,
		device.WithPixFormat(v4l2.PixFormat{
			PixelFormat: v4l2.FourCCType(neg.Format.FourCC()),
			Width:       neg.Resolution.Width,
			Height:      neg.Resolution.Height,
			Field:       v4l2.FieldNone,
		}),
		device.WithFPS(neg.FPS),
		device.WithBufferSize(c.config.BufferCount),
	)
	if err != nil {
		return Negotiation{}, mapOpenError(err)
	}

	c.dev = dev
	c.neg = neg
	return neg, nil
}

// Negotiated returns the result of the last Open.
func (c *Capturer) Negotiated() Negotiation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.neg
}

// Start begins streaming. Frames are pulled with ReadFrame.
func (c *Capturer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev == nil {
		return ErrNotStarted
	}
	if c.started {
		return nil
	}
	if err := c.dev.Start(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceLost, err)
	}
	c.started = true
	return nil
}

// Stop halts streaming and closes the device.
func (c *Capturer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev == nil {
		return nil
	}
	err := c.dev.Close()
	c.dev = nil
	c.started = false
	return err
}

// ReadFrame blocks for the next frame. While staleness dropping is enabled
// (a non-zero StaleAfter, or a known frame rate when it is zero), a frame is
// discarded whenever newer frames are already queued behind it, so a slow
// consumer reads fresh input. The StaleAfter duration is not compared with
// a frame's age. A closed output channel reports ErrDeviceLost; the caller
// owns recovery.
func (c *Capturer) ReadFrame(ctx context.Context) (*Frame, error) {
	c.mu.Lock()
	dev := c.dev
	started := c.started
	neg := c.neg
	c.mu.Unlock()

	if dev == nil || !started {
		return nil, ErrNotStarted
	}

	stale := c.config.StaleAfter
	if stale == 0 && neg.FPS > 0 {
		stale = 2 * time.Second / time.Duration(neg.FPS)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case data, ok := <-dev.GetOutput():
			if !ok {
				return nil, ErrDeviceLost
			}
			if len(data) == 0 {
				continue
			}

			now := time.Now()
			frame := c.wrap(data, neg, now)

			// The driver paces us; if more frames are already queued this
			// one is stale, so drain and keep only the freshest.
			if stale > 0 && len(dev.GetOutput()) > 0 {
				frame.Release()
				continue
			}

			return frame, nil
		}
	}
}

// BlankFrame builds an offline placeholder at the negotiated geometry so
// downstream consumers keep ticking while the device is away.
func (c *Capturer) BlankFrame() *Frame {
	c.mu.Lock()
	neg := c.neg
	c.mu.Unlock()

	res := neg.Resolution
	if res.Width == 0 || res.Height == 0 {
		res = c.config.Target
	}
	return BlackFrame(neg.Format, res, c.sequence.Add(1))
}

func (c *Capturer) wrap(data []byte, neg Negotiation, ts time.Time) *Frame {
	var buf []byte
	if pooled, ok := c.pool.Get().([]byte); ok && cap(pooled) >= len(data) {
		buf = pooled[:len(data)]
	} else {
		buf = make([]byte, len(data))
	}
	copy(buf, data)

	seq := c.sequence.Add(1)
	return NewFrame(buf, neg.Format, neg.Resolution, rowStrideOf(neg.Format, neg.Resolution), seq, ts, true, func(b []byte) {
		c.pool.Put(b[:cap(b)]) //nolint:staticcheck
	})
}

// ListFormats enumerates the device's pixel formats restricted to the
// closed set.
func ListFormats(path string) ([]PixelFormat, error) {
	caps, err := probeCaps(path)
	if err != nil {
		return nil, err
	}

	var formats []PixelFormat
	for _, f := range AllFormats() {
		if _, ok := caps.Formats[f]; ok {
			formats = append(formats, f)
		}
	}
	return formats, nil
}

// ListResolutions enumerates the frame sizes the device advertises for a
// format.
func ListResolutions(path string, format PixelFormat) ([]Resolution, error) {
	caps, err := probeCaps(path)
	if err != nil {
		return nil, err
	}

	sizes, ok := caps.Formats[format]
	if !ok {
		return nil, ErrFormatUnsupported
	}

	res := make([]Resolution, 0, len(sizes))
	for _, s := range sizes {
		res = append(res, s.Resolution)
	}
	return res, nil
}

func probeCaps(path string) (DeviceCaps, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DeviceCaps{}, ErrDeviceNotFound
	}

	dev, err := device.Open(path)
	if err != nil {
		return DeviceCaps{}, mapOpenError(err)
	}
	defer dev.Close()

	descs, err := v4l2.GetAllFormatDescriptions(dev.Fd())
	if err != nil {
		return DeviceCaps{}, fmt.Errorf("%w: %w", ErrDeviceLost, err)
	}

	caps := DeviceCaps{Formats: make(map[PixelFormat][]ResolutionCaps)}
	for _, desc := range descs {
		format := FormatFromFourCC(uint32(desc.PixelFormat))
		if format == FormatUnknown {
			continue
		}

		sizes, err := v4l2.GetFormatFrameSizes(dev.Fd(), desc.PixelFormat)
		if err != nil {
			continue
		}

		for _, fs := range sizes {
			caps.Formats[format] = append(caps.Formats[format], ResolutionCaps{
				Resolution: Resolution{
					Width:  fs.Size.MaxWidth,
					Height: fs.Size.MaxHeight,
				},
			})
		}
	}

	if len(caps.Formats) == 0 {
		return DeviceCaps{}, ErrFormatUnsupported
	}
	return caps, nil
}

func mapOpenError(err error) error {
	switch {
	case errors.Is(err, syscall.EBUSY):
		return ErrDeviceBusy
	case errors.Is(err, os.ErrNotExist), errors.Is(err, syscall.ENODEV):
		return ErrDeviceNotFound
	default:
		return fmt.Errorf("%w: %w", ErrDeviceLost, err)
	}
}
