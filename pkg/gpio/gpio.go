// SPDX-License-Identifier: BSD-3-Clause

//go:build linux
// +build linux

package gpio

import (
	"errors"
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"
)

const consumer = "one-kvm"

// RequestOutput claims a line as an output with the given initial value.
func RequestOutput(chip string, offset int, initial int) (*gpiocdev.Line, error) {
	if chip == "" || offset < 0 {
		return nil, ErrInvalidValue
	}

	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.WithConsumer(consumer),
		gpiocdev.AsOutput(initial),
	)
	if err != nil {
		return nil, mapErr(err, fmt.Sprintf("request output %s:%d", chip, offset))
	}
	return line, nil
}

// RequestInput claims a line as an input.
func RequestInput(chip string, offset int) (*gpiocdev.Line, error) {
	if chip == "" || offset < 0 {
		return nil, ErrInvalidValue
	}

	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.WithConsumer(consumer),
		gpiocdev.AsInput,
	)
	if err != nil {
		return nil, mapErr(err, fmt.Sprintf("request input %s:%d", chip, offset))
	}
	return line, nil
}

// Pulse drives the line active for the given duration, then releases it.
// This is how momentary front-panel buttons are clicked.
func Pulse(line *gpiocdev.Line, d time.Duration) error {
	if line == nil {
		return ErrInvalidValue
	}
	if err := line.SetValue(1); err != nil {
		return mapErr(err, "assert line")
	}
	time.Sleep(d)
	if err := line.SetValue(0); err != nil {
		return mapErr(err, "release line")
	}
	return nil
}

func mapErr(err error, op string) error {
	if errors.Is(err, unix.EBUSY) {
		return fmt.Errorf("%w: %s", ErrLineBusy, op)
	}
	return fmt.Errorf("%w: %s: %w", ErrOperationFailed, op, err)
}
