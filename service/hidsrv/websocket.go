// SPDX-License-Identifier: BSD-3-Clause

package hidsrv

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"

	"github.com/one-kvm/one-kvm/pkg/hid"
)

// HandleWire dispatches one binary input message and returns the one-byte
// response code. Shared by the WebSocket surface and the WebRTC data
// channel.
func (s *Service) HandleWire(data []byte) byte {
	ev, err := hid.ParseMessage(data)
	if err != nil {
		return hid.RespInvalid
	}

	if !s.Available() {
		return hid.RespUnavailable
	}

	switch {
	case ev.Key != nil:
		err = s.SendKey(*ev.Key)
	case ev.Mouse != nil:
		err = s.SendMouse(*ev.Mouse)
	default:
		return hid.RespInvalid
	}

	if errors.Is(err, ErrHidUnavailable) || errors.Is(err, ErrHidBackendFailed) {
		return hid.RespUnavailable
	}
	return hid.RespOK
}

// ServeConn pumps a dedicated input WebSocket: binary messages in, one-byte
// status responses out. Returns when the peer goes away or ctx ends.
func (s *Service) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		resp := s.HandleWire(data)
		if err := conn.WriteMessage(websocket.BinaryMessage, []byte{resp}); err != nil {
			return err
		}
	}
}
