// SPDX-License-Identifier: BSD-3-Clause

package bus

import "time"

// EventType discriminates the SystemEvent union.
type EventType string

const (
	EventStreamStateChanged EventType = "stream_state_changed"
	EventVideoDeviceChanged EventType = "video_device_changed"
	EventEncoderChanged     EventType = "encoder_changed"
	EventHidStateChanged    EventType = "hid_state_changed"
	EventMsdStateChanged    EventType = "msd_state_changed"
	EventAtxStateChanged    EventType = "atx_state_changed"
	EventAudioStateChanged  EventType = "audio_state_changed"
	EventDeviceInfo         EventType = "device_info"
	EventError              EventType = "error"

	// EventLagged is synthesized locally for a subscriber that fell behind;
	// it never crosses the wire.
	EventLagged EventType = "lagged"
)

// StreamStateChanged reports streamer state machine transitions.
type StreamStateChanged struct {
	State      string `json:"state"`
	Mode       string `json:"mode"`
	Resolution string `json:"resolution,omitempty"`
	FPS        uint32 `json:"fps,omitempty"`
	Online     bool   `json:"online"`
}

// VideoDeviceChanged reports capture device arrival, loss or renegotiation.
type VideoDeviceChanged struct {
	Device string `json:"device"`
	Online bool   `json:"online"`
	Reason string `json:"reason,omitempty"`
}

// EncoderChanged reports encoder instantiation and disposal per codec.
type EncoderChanged struct {
	Codec   string `json:"codec"`
	Backend string `json:"backend,omitempty"`
	Active  bool   `json:"active"`
	Bitrate uint32 `json:"bitrate_kbps,omitempty"`
}

// HidStateChanged reports HID backend health transitions and LED state.
type HidStateChanged struct {
	Backend string `json:"backend"`
	State   string `json:"state"`
	Leds    *Leds  `json:"leds,omitempty"`
}

// Leds is the keyboard LED state mirrored from the target.
type Leds struct {
	Caps   bool `json:"caps"`
	Num    bool `json:"num"`
	Scroll bool `json:"scroll"`
}

// MsdStateChanged reports mass-storage connection transitions.
type MsdStateChanged struct {
	Connection string `json:"connection"`
	ImageID    string `json:"image_id,omitempty"`
	CDROM      bool   `json:"cdrom,omitempty"`
	ReadOnly   bool   `json:"ro,omitempty"`
	Ejected    bool   `json:"ejected,omitempty"`
}

// AtxStateChanged reports power-control activity and LED sense.
type AtxStateChanged struct {
	Op    string `json:"op,omitempty"`
	Busy  bool   `json:"busy"`
	Power bool   `json:"power_led"`
	HDD   bool   `json:"hdd_led,omitempty"`
}

// AudioStateChanged reports audio capture state.
type AudioStateChanged struct {
	State   string `json:"state"`
	Bitrate uint32 `json:"bitrate_kbps,omitempty"`
}

// DeviceInfo carries capture device enumeration results.
type DeviceInfo struct {
	Device      string   `json:"device"`
	Formats     []string `json:"formats,omitempty"`
	Resolutions []string `json:"resolutions,omitempty"`
}

// ErrorEvent surfaces a component failure to observers.
type ErrorEvent struct {
	Component string `json:"component"`
	Message   string `json:"message"`
}

// SystemEvent is the closed union published on the bus. Type selects which
// payload pointer is set; all others are nil.
type SystemEvent struct {
	Type EventType `json:"type"`
	Time time.Time `json:"time"`

	StreamState *StreamStateChanged `json:"stream_state,omitempty"`
	VideoDevice *VideoDeviceChanged `json:"video_device,omitempty"`
	Encoder     *EncoderChanged     `json:"encoder,omitempty"`
	Hid         *HidStateChanged    `json:"hid,omitempty"`
	Msd         *MsdStateChanged    `json:"msd,omitempty"`
	Atx         *AtxStateChanged    `json:"atx,omitempty"`
	Audio       *AudioStateChanged  `json:"audio,omitempty"`
	Device      *DeviceInfo         `json:"device,omitempty"`
	Error       *ErrorEvent         `json:"error,omitempty"`

	// Lagged counts events dropped for this subscriber since the last
	// delivered event. Only set on locally synthesized lag markers.
	Lagged uint64 `json:"lagged,omitempty"`
}
