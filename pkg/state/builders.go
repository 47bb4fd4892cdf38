// SPDX-License-Identifier: BSD-3-Clause

package state

import "github.com/qmuntal/stateless"

// Streamer lifecycle states.
const (
	StreamerIdle      = "idle"
	StreamerStarting  = "starting"
	StreamerStreaming = "streaming"
	StreamerStopping  = "stopping"
	StreamerError     = "error"
)

// Streamer lifecycle triggers.
const (
	TriggerStart    = "start"
	TriggerStarted  = "started"
	TriggerStop     = "stop"
	TriggerStopped  = "stopped"
	TriggerFail     = "fail"
	TriggerRecover  = "recover"
)

// NewStreamerMachine builds the Idle -> Starting -> Streaming -> Stopping ->
// Idle lifecycle. Any state may fail into Error, which recovers to Idle once
// the cause has been surfaced.
func NewStreamerMachine(name string) *Machine {
	sm := stateless.NewStateMachine(StreamerIdle)

	sm.Configure(StreamerIdle).
		Permit(TriggerStart, StreamerStarting).
		Permit(TriggerFail, StreamerError)

	sm.Configure(StreamerStarting).
		Permit(TriggerStarted, StreamerStreaming).
		Permit(TriggerStop, StreamerStopping).
		Permit(TriggerFail, StreamerError)

	sm.Configure(StreamerStreaming).
		Permit(TriggerStop, StreamerStopping).
		Permit(TriggerFail, StreamerError)

	sm.Configure(StreamerStopping).
		Permit(TriggerStopped, StreamerIdle).
		Permit(TriggerFail, StreamerError)

	sm.Configure(StreamerError).
		Permit(TriggerRecover, StreamerIdle)

	return newMachine(name, sm)
}

// HID backend health states.
const (
	BackendInitializing = "initializing"
	BackendOnline       = "online"
	BackendDegraded     = "degraded"
	BackendRecovering   = "recovering"
	BackendFailed       = "failed"
)

// HID backend health triggers.
const (
	TriggerReady       = "ready"
	TriggerWriteError  = "write_error"
	TriggerReopen      = "reopen"
	TriggerRecovered   = "recovered"
	TriggerGiveUp      = "give_up"
	TriggerReinit      = "reinit"
)

// NewBackendMachine builds the HID backend health cycle: Initializing ->
// Online -> Degraded -> Recovering -> Online, with Failed reachable from the
// degraded path and only left via explicit re-initialization.
func NewBackendMachine(name string) *Machine {
	sm := stateless.NewStateMachine(BackendInitializing)

	sm.Configure(BackendInitializing).
		Permit(TriggerReady, BackendOnline).
		Permit(TriggerGiveUp, BackendFailed)

	sm.Configure(BackendOnline).
		Permit(TriggerWriteError, BackendDegraded)

	sm.Configure(BackendDegraded).
		Permit(TriggerReopen, BackendRecovering).
		Permit(TriggerGiveUp, BackendFailed)

	sm.Configure(BackendRecovering).
		Permit(TriggerRecovered, BackendOnline).
		Permit(TriggerWriteError, BackendDegraded).
		Permit(TriggerGiveUp, BackendFailed)

	sm.Configure(BackendFailed).
		Permit(TriggerReinit, BackendInitializing)

	return newMachine(name, sm)
}
