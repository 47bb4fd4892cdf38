// SPDX-License-Identifier: BSD-3-Clause

package config

// Section names.
const (
	SectionVideo  = "video"
	SectionHid    = "hid"
	SectionMsd    = "msd"
	SectionAudio  = "audio"
	SectionAtx    = "atx"
	SectionOtg    = "otg"
	SectionWebrtc = "webrtc"
)

// Video configures capture and the shared pipeline.
type Video struct {
	Device      string `json:"device"`
	Format      string `json:"format"` // "auto" or a pixel format name
	Width       uint32 `json:"width"`
	Height      uint32 `json:"height"`
	FPS         uint32 `json:"fps"`
	KeepaliveMs uint32 `json:"keepalive_ms"`
	GopSize     uint32 `json:"gop_size"` // 0 derives one keyframe per second
}

// DefaultVideo returns the stock video section.
func DefaultVideo() Video {
	return Video{
		Device:      "/dev/video0",
		Format:      "auto",
		Width:       1920,
		Height:      1080,
		FPS:         30,
		KeepaliveMs: 1000,
	}
}

// Hid configures the input backend.
type Hid struct {
	Backend       string `json:"backend"` // "otg", "ch9329" or "none"
	SerialPort    string `json:"serial_port"`
	SerialBaud    int    `json:"serial_baud"`
	ReadTimeoutMs int    `json:"read_timeout_ms"`
	ScreenWidth   uint32 `json:"screen_width"`
	ScreenHeight  uint32 `json:"screen_height"`
}

// DefaultHid returns the stock HID section.
func DefaultHid() Hid {
	return Hid{
		Backend:       "otg",
		SerialPort:    "/dev/ttyUSB0",
		SerialBaud:    9600,
		ReadTimeoutMs: 300,
		ScreenWidth:   1920,
		ScreenHeight:  1080,
	}
}

// Msd configures mass storage.
type Msd struct {
	DriveSizeMB int `json:"drive_size_mb"`
}

// DefaultMsd returns the stock MSD section.
func DefaultMsd() Msd {
	return Msd{DriveSizeMB: 256}
}

// Audio configures capture and Opus encoding.
type Audio struct {
	Device      string `json:"device"`
	BitrateKbps int    `json:"bitrate_kbps"` // 24, 48, 64 or 96
	RescanSec   int    `json:"rescan_sec"`
}

// DefaultAudio returns the stock audio section.
func DefaultAudio() Audio {
	return Audio{BitrateKbps: 48, RescanSec: 5}
}

// Atx configures power control.
type Atx struct {
	Driver       string `json:"driver"` // "gpio" or "usbrelay"
	Chip         string `json:"chip"`
	PowerLine    int    `json:"power_line"`
	ResetLine    int    `json:"reset_line"`
	PowerLedLine int    `json:"power_led_line"`
	HddLedLine   int    `json:"hdd_led_line"`
	SerialPort   string `json:"serial_port"`
}

// DefaultAtx returns the stock ATX section.
func DefaultAtx() Atx {
	return Atx{
		Driver:       "gpio",
		Chip:         "/dev/gpiochip0",
		PowerLine:    5,
		ResetLine:    6,
		PowerLedLine: 13,
		HddLedLine:   -1,
	}
}

// Otg configures the USB gadget.
type Otg struct {
	Udc          string `json:"udc"` // empty picks the first UDC
	VendorID     string `json:"vendor_id"`
	ProductID    string `json:"product_id"`
	Manufacturer string `json:"manufacturer"`
	Product      string `json:"product"`
	MaxEndpoints int    `json:"max_endpoints"`
}

// DefaultOtg returns the stock OTG section.
func DefaultOtg() Otg {
	return Otg{
		VendorID:     "0x1d6b",
		ProductID:    "0x0104",
		Manufacturer: "One-KVM",
		Product:      "Composite KVM Device",
		MaxEndpoints: 7,
	}
}

// Webrtc configures the session layer.
type Webrtc struct {
	StunServer     string   `json:"stun_server"`
	Codecs         []string `json:"codecs"` // preference order
	MaxBitrateKbps uint32   `json:"max_bitrate_kbps"`
}

// DefaultWebrtc returns the stock WebRTC section.
func DefaultWebrtc() Webrtc {
	return Webrtc{
		StunServer:     "stun:stun.l.google.com:19302",
		Codecs:         []string{"h264", "vp8"},
		MaxBitrateKbps: 5000,
	}
}
