// SPDX-License-Identifier: BSD-3-Clause

package webrtcsrv

import (
	"context"
	"log/slog"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/one-kvm/one-kvm/pkg/video"
)

// session is one negotiated browser connection.
type session struct {
	id         string
	generation uint64
	codec      video.Codec

	pc         *webrtc.PeerConnection
	videoTrack *webrtc.TrackLocalStaticSample
	audioTrack *webrtc.TrackLocalStaticSample

	cancel context.CancelFunc
	logger *slog.Logger
	parent *Service
}

func mimeFor(c video.Codec) (string, bool) {
	switch c {
	case video.CodecH264:
		return webrtc.MimeTypeH264, true
	case video.CodecVP8:
		return webrtc.MimeTypeVP8, true
	case video.CodecVP9:
		return webrtc.MimeTypeVP9, true
	default:
		return "", false
	}
}

// pumpVideo pulls encoded frames for the session's codec and writes them as
// media samples. The subscription demands a key frame so the browser can
// decode from the first sample.
func (s *session) pumpVideo(ctx context.Context) {
	sub, err := s.parent.config.video.SubscribeWebrtc(s.codec, true)
	if err != nil {
		s.logger.Warn("Video subscription failed", "codec", s.codec.String(), "error", err)
		return
	}
	defer sub.Close()

	for {
		frame, err := sub.Frames.Next(ctx)
		if err != nil {
			return
		}

		if err := s.videoTrack.WriteSample(media.Sample{
			Data:     frame.Data,
			Duration: frame.Duration,
		}); err != nil {
			s.logger.Debug("Video sample write failed", "error", err)
		}
	}
}

// pumpAudio feeds Opus frames when the audio controller is present and
// streaming.
func (s *session) pumpAudio(ctx context.Context) {
	if s.parent.config.audio == nil || s.audioTrack == nil {
		return
	}

	recv := s.parent.config.audio.Subscribe()
	defer recv.Close()

	for {
		frame, err := recv.Next(ctx)
		if err != nil {
			return
		}

		if err := s.audioTrack.WriteSample(media.Sample{
			Data:     frame.Data,
			Duration: frame.Duration,
		}); err != nil {
			s.logger.Debug("Audio sample write failed", "error", err)
		}
	}
}

// pumpRTCP folds receiver reports into pipeline signals: PLI and FIR force
// keyframes, every NACK packet and a shrinking REMB push the bitrate down,
// growing REMB lets it climb. NACKs are not counted or grouped into bursts.
func (s *session) pumpRTCP(ctx context.Context, sender *webrtc.RTPSender) {
	var lastRemb float32

	buf := make([]byte, 1500)
	for {
		if ctx.Err() != nil {
			return
		}

		n, _, err := sender.Read(buf)
		if err != nil {
			return
		}

		packets, err := rtcp.Unmarshal(buf[:n])
		if err != nil {
			continue
		}

		for _, pkt := range packets {
			switch p := pkt.(type) {
			case *rtcp.PictureLossIndication, *rtcp.FullIntraRequest:
				s.parent.config.video.RequestKeyframe(s.codec)
			case *rtcp.TransportLayerNack:
				s.parent.config.video.CongestionHint(s.codec, true)
			case *rtcp.ReceiverEstimatedMaximumBitrate:
				if lastRemb != 0 && p.Bitrate < lastRemb {
					s.parent.config.video.CongestionHint(s.codec, true)
				} else {
					s.parent.config.video.CongestionHint(s.codec, false)
				}
				lastRemb = p.Bitrate
			}
		}
	}
}

// attachDataChannel wires incoming HID messages to the input controller and
// answers each with the one-byte status code.
func (s *session) attachDataChannel(dc *webrtc.DataChannel) {
	hid := s.parent.config.hid
	if hid == nil {
		return
	}

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if msg.IsString {
			return
		}
		resp := hid.HandleWire(msg.Data)
		_ = dc.Send([]byte{resp})
	})
}

// close tears the session down; safe to call more than once.
func (s *session) close() {
	s.cancel()

	done := make(chan struct{})
	go func() {
		_ = s.pc.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
