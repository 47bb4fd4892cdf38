// SPDX-License-Identifier: BSD-3-Clause

package video

import "time"

// CaptureConfig configures a Capturer.
type CaptureConfig struct {
	// Device is the capture device path (e.g. "/dev/video0").
	Device string

	// Preferred orders acceptable pixel formats; empty means the built-in
	// priority order.
	Preferred []PixelFormat

	// Target is the desired resolution.
	Target Resolution

	// FPS is the desired frame rate.
	FPS uint32

	// BufferCount is the number of mmap capture buffers.
	BufferCount uint32

	// StaleAfter enables dropping of frames that already have newer frames
	// queued behind them; zero enables it whenever the negotiated rate is
	// known. The duration itself is not compared with a frame's age.
	StaleAfter time.Duration
}

// DefaultCaptureConfig returns the stock capture configuration.
func DefaultCaptureConfig() *CaptureConfig {
	return &CaptureConfig{
		Device:      "/dev/video0",
		Target:      Resolution{Width: 1920, Height: 1080},
		FPS:         30,
		BufferCount: 4,
	}
}

// Validate checks the configuration and fills defaults.
func (c *CaptureConfig) Validate() error {
	if c.Device == "" {
		return ErrInvalidConfig
	}
	if c.Target.Width == 0 || c.Target.Height == 0 {
		return ErrInvalidConfig
	}
	if c.FPS == 0 {
		c.FPS = 30
	}
	if c.BufferCount == 0 {
		c.BufferCount = 4
	}
	return nil
}
