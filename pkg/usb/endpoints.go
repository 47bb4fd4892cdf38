// SPDX-License-Identifier: BSD-3-Clause

package usb

// Endpoint costs per function. HID functions use one interrupt-IN endpoint
// (plus one interrupt-OUT when LED output reports are enabled); the
// mass-storage function uses one bulk-IN and one bulk-OUT.
const (
	// DefaultEndpointBudget is a conservative IN-endpoint cap matching the
	// dwc2-class controllers found on the usual SoCs.
	DefaultEndpointBudget = 7
)

// EndpointCost describes a function's endpoint usage.
type EndpointCost struct {
	In  int
	Out int
}

// HIDEndpointCost returns the endpoint cost of a HID function spec.
func HIDEndpointCost(spec HIDSpec) EndpointCost {
	cost := EndpointCost{In: 1}
	if !spec.NoOutEndpoint {
		cost.Out = 1
	}
	return cost
}

// MSDEndpointCost returns the endpoint cost of the mass-storage function.
func MSDEndpointCost() EndpointCost {
	return EndpointCost{In: 1, Out: 1}
}

// Budget tracks IN-endpoint allocation against a fixed cap. The cap is per
// gadget; OUT endpoints are tracked but not limited since the usual
// controllers run out of IN endpoints first.
type Budget struct {
	cap  int
	in   int
	out  int
}

// NewBudget creates a budget with the given IN-endpoint cap; zero selects
// DefaultEndpointBudget.
func NewBudget(cap int) *Budget {
	if cap <= 0 {
		cap = DefaultEndpointBudget
	}
	return &Budget{cap: cap}
}

// Reserve claims the cost if it fits, or returns ErrEndpointExhausted
// leaving the budget unchanged.
func (b *Budget) Reserve(cost EndpointCost) error {
	if b.in+cost.In > b.cap {
		return ErrEndpointExhausted
	}
	b.in += cost.In
	b.out += cost.Out
	return nil
}

// Release returns a previously reserved cost.
func (b *Budget) Release(cost EndpointCost) {
	b.in -= cost.In
	b.out -= cost.Out
	if b.in < 0 {
		b.in = 0
	}
	if b.out < 0 {
		b.out = 0
	}
}

// InUse returns the reserved IN-endpoint count.
func (b *Budget) InUse() int {
	return b.in
}

// Free returns the remaining IN-endpoint headroom.
func (b *Budget) Free() int {
	return b.cap - b.in
}
