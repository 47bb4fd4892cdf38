// SPDX-License-Identifier: BSD-3-Clause

package videosrv

import (
	"fmt"
	"image"
	"io"
	"sort"
	"sync"

	"github.com/pion/mediadevices/pkg/codec"
	"github.com/pion/mediadevices/pkg/codec/openh264"
	"github.com/pion/mediadevices/pkg/codec/vaapi"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	"github.com/pion/mediadevices/pkg/codec/x264"
	"github.com/pion/mediadevices/pkg/frame"
	mdvideo "github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"

	"github.com/one-kvm/one-kvm/pkg/video"
)

// Encoder is one instantiated per-codec encoder.
type Encoder interface {
	// Encode consumes the canonical YUV420 image and returns the encoded
	// payload, nil when the encoder buffered the frame.
	Encode(img *image.YCbCr) ([]byte, error)

	// SetBitrate adjusts the target bitrate in kbps; backends without a
	// rate controller ignore it.
	SetBitrate(kbps uint32)

	// ForceKeyframe makes the next output a key frame when the backend
	// supports it.
	ForceKeyframe()

	// Backend names the producing backend for diagnostics.
	Backend() string

	// Close releases the encoder.
	Close() error
}

// Factory builds an encoder for a geometry and starting bitrate.
type Factory func(res video.Resolution, fps uint32, bitrateKbps uint32) (Encoder, error)

type registryEntry struct {
	backend  string
	priority int
	factory  Factory
}

// Registry maps codecs to backend factories in priority order. It is
// immutable after startup; the pipeline walks entries highest priority
// first until one instantiates.
type Registry struct {
	mu      sync.Mutex
	entries map[video.Codec][]registryEntry
	sealed  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[video.Codec][]registryEntry)}
}

// Register adds a backend for a codec. Panics after Seal; registration is a
// startup-only affair.
func (r *Registry) Register(c video.Codec, backend string, priority int, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		panic("encoder registry sealed")
	}
	r.entries[c] = append(r.entries[c], registryEntry{backend: backend, priority: priority, factory: f})
	sort.SliceStable(r.entries[c], func(i, j int) bool {
		return r.entries[c][i].priority > r.entries[c][j].priority
	})
}

// Seal freezes the registry.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Build walks the codec's backends by priority and returns the first that
// instantiates.
func (r *Registry) Build(c video.Codec, res video.Resolution, fps, bitrateKbps uint32) (Encoder, error) {
	r.mu.Lock()
	entries := r.entries[c]
	r.mu.Unlock()

	var lastErr error
	for _, e := range entries {
		enc, err := e.factory(res, fps, bitrateKbps)
		if err == nil {
			return enc, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEncoderUnavailable, c, lastErr)
	}
	return nil, fmt.Errorf("%w: %s", ErrEncoderUnavailable, c)
}

// DefaultRegistry wires the backends available through pion/mediadevices:
// x264 then openh264 for H264, VAAPI then libvpx for VP8/VP9. Hardware
// H264 rows (RKMPP, V4L2-M2M) slot in here when a port layer registers
// them; H265 stays empty until one does.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(video.CodecH264, "x264", 50, func(res video.Resolution, fps, kbps uint32) (Encoder, error) {
		params, err := x264.NewParams()
		if err != nil {
			return nil, err
		}
		params.BitRate = int(kbps) * 1000
		params.KeyFrameInterval = int(fps)
		return newMediaEncoder("x264", video.CodecH264, &params, res, fps)
	})
	r.Register(video.CodecH264, "openh264", 40, func(res video.Resolution, fps, kbps uint32) (Encoder, error) {
		params, err := openh264.NewParams()
		if err != nil {
			return nil, err
		}
		params.BitRate = int(kbps) * 1000
		params.KeyFrameInterval = int(fps)
		return newMediaEncoder("openh264", video.CodecH264, &params, res, fps)
	})

	r.Register(video.CodecVP8, "vaapi", 60, func(res video.Resolution, fps, kbps uint32) (Encoder, error) {
		params, err := vaapi.NewVP8Params()
		if err != nil {
			return nil, err
		}
		params.BitRate = int(kbps) * 1000
		params.KeyFrameInterval = int(fps)
		return newMediaEncoder("vaapi", video.CodecVP8, &params, res, fps)
	})
	r.Register(video.CodecVP8, "vpx", 50, func(res video.Resolution, fps, kbps uint32) (Encoder, error) {
		params, err := vpx.NewVP8Params()
		if err != nil {
			return nil, err
		}
		params.BitRate = int(kbps) * 1000
		params.KeyFrameInterval = int(fps)
		return newMediaEncoder("vpx", video.CodecVP8, &params, res, fps)
	})

	r.Register(video.CodecVP9, "vaapi", 60, func(res video.Resolution, fps, kbps uint32) (Encoder, error) {
		params, err := vaapi.NewVP9Params()
		if err != nil {
			return nil, err
		}
		params.BitRate = int(kbps) * 1000
		params.KeyFrameInterval = int(fps)
		return newMediaEncoder("vaapi", video.CodecVP9, &params, res, fps)
	})
	r.Register(video.CodecVP9, "vpx", 50, func(res video.Resolution, fps, kbps uint32) (Encoder, error) {
		params, err := vpx.NewVP9Params()
		if err != nil {
			return nil, err
		}
		params.BitRate = int(kbps) * 1000
		params.KeyFrameInterval = int(fps)
		return newMediaEncoder("vpx", video.CodecVP9, &params, res, fps)
	})

	r.Seal()
	return r
}

// videoEncoderBuilder is the common surface of mediadevices codec params.
type videoEncoderBuilder interface {
	BuildVideoEncoder(r mdvideo.Reader, property prop.Media) (codec.ReadCloser, error)
}

// mediaEncoder adapts a mediadevices codec.ReadCloser into the push-style
// Encoder. Frames are handed to the reader the encoder pulls from; one
// Encode call corresponds to one Read on the encoded side.
type mediaEncoder struct {
	backend string
	codec   video.Codec
	rc      codec.ReadCloser

	mu   sync.Mutex
	next *image.YCbCr
}

func newMediaEncoder(backend string, c video.Codec, builder videoEncoderBuilder, res video.Resolution, fps uint32) (*mediaEncoder, error) {
	e := &mediaEncoder{backend: backend, codec: c}

	reader := mdvideo.ReaderFunc(func() (image.Image, func(), error) {
		e.mu.Lock()
		img := e.next
		e.next = nil
		e.mu.Unlock()
		if img == nil {
			return nil, func() {}, io.EOF
		}
		return img, func() {}, nil
	})

	rc, err := builder.BuildVideoEncoder(reader, prop.Media{
		Video: prop.Video{
			Width:       int(res.Width),
			Height:      int(res.Height),
			FrameRate:   float32(fps),
			FrameFormat: frame.FormatI420,
		},
	})
	if err != nil {
		return nil, err
	}

	e.rc = rc
	return e, nil
}

func (e *mediaEncoder) Encode(img *image.YCbCr) ([]byte, error) {
	e.mu.Lock()
	e.next = img
	e.mu.Unlock()

	data, release, err := e.rc.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrEncodingError, err)
	}
	defer release()

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (e *mediaEncoder) SetBitrate(kbps uint32) {
	if ctrl, ok := e.rc.Controller().(codec.BitRateController); ok {
		_ = ctrl.SetBitRate(int(kbps) * 1000)
	}
}

func (e *mediaEncoder) ForceKeyframe() {
	if ctrl, ok := e.rc.Controller().(codec.KeyFrameController); ok {
		_ = ctrl.ForceKeyFrame()
	}
}

func (e *mediaEncoder) Backend() string { return e.backend }

func (e *mediaEncoder) Close() error { return e.rc.Close() }

// isKeyFrame sniffs the bitstream for a key frame marker.
func isKeyFrame(c video.Codec, data []byte) bool {
	switch c {
	case video.CodecH264, video.CodecH265:
		return h264HasIDR(data)
	case video.CodecVP8:
		// VP8: inverse key frame flag in the first payload byte.
		return len(data) > 0 && data[0]&0x01 == 0
	case video.CodecVP9:
		// VP9 uncompressed header: frame type bit after the frame marker.
		return len(data) > 0 && data[0]&0x04 == 0
	case video.CodecJPEG:
		return true
	default:
		return false
	}
}

func h264HasIDR(data []byte) bool {
	for i := 0; i+3 < len(data); i++ {
		if data[i] == 0 && data[i+1] == 0 && (data[i+2] == 1 || (data[i+2] == 0 && i+4 < len(data) && data[i+3] == 1)) {
			off := i + 3
			if data[i+2] == 0 {
				off = i + 4
			}
			if off < len(data) && data[off]&0x1f == 5 {
				return true
			}
		}
	}
	return false
}
