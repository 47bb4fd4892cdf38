// SPDX-License-Identifier: BSD-3-Clause

package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/qmuntal/stateless"
)

// BroadcastCallback is invoked after every successful transition with the
// machine name, previous state, new state and the trigger that fired.
type BroadcastCallback func(machine, previous, current, trigger string)

// Machine is a thread-safe finite state machine.
type Machine struct {
	name      string
	mu        sync.Mutex
	machine   *stateless.StateMachine
	broadcast BroadcastCallback
}

// newMachine builds a machine around a configured stateless.StateMachine.
func newMachine(name string, sm *stateless.StateMachine) *Machine {
	return &Machine{name: name, machine: sm}
}

// SetBroadcastCallback installs the transition callback.
func (m *Machine) SetBroadcastCallback(cb BroadcastCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcast = cb
}

// State returns the current state name.
func (m *Machine) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprint(m.machine.MustState())
}

// Fire triggers a transition. ErrInvalidTransition is returned when the
// trigger is not permitted in the current state.
func (m *Machine) Fire(ctx context.Context, trigger string) error {
	m.mu.Lock()
	prev := fmt.Sprint(m.machine.MustState())

	if ok, _ := m.machine.CanFire(trigger); !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -(%s)->", ErrInvalidTransition, prev, trigger)
	}

	if err := m.machine.FireCtx(ctx, trigger); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}

	cur := fmt.Sprint(m.machine.MustState())
	cb := m.broadcast
	m.mu.Unlock()

	if cb != nil && prev != cur {
		cb(m.name, prev, cur, trigger)
	}

	return nil
}

// Is reports whether the machine currently is in the named state.
func (m *Machine) Is(state string) bool {
	return m.State() == state
}
