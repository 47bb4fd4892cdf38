// SPDX-License-Identifier: BSD-3-Clause

//go:build linux
// +build linux

package usb

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CreateHIDFunction populates functions/hid.<instance> from spec and links
// it into c.1. The instance string keys the function for later lookup and
// removal.
func (g *Gadget) CreateHIDFunction(instance string, spec HIDSpec) error {
	name := "hid." + instance
	functionDir := g.functionDir(name)

	if _, err := os.Stat(functionDir); err == nil {
		return fmt.Errorf("%w: %s", ErrFunctionExists, name)
	}

	if err := os.MkdirAll(functionDir, 0o755); err != nil {
		return wrapPathErr("create HID function directory", err)
	}

	noOut := "0"
	if spec.NoOutEndpoint {
		noOut = "1"
	}
	attrs := map[string]string{
		"protocol":        strconv.Itoa(spec.Protocol),
		"subclass":        strconv.Itoa(spec.Subclass),
		"report_length":   strconv.Itoa(spec.ReportLength),
		"no_out_endpoint": noOut,
	}
	for attr, value := range attrs {
		if err := writeFile(filepath.Join(functionDir, attr), value); err != nil {
			_ = os.RemoveAll(functionDir)
			return fmt.Errorf("failed to write HID %s: %w", attr, err)
		}
	}

	if err := os.WriteFile(filepath.Join(functionDir, "report_desc"), spec.Descriptor, 0o644); err != nil {
		_ = os.RemoveAll(functionDir)
		return wrapPathErr("write HID report descriptor", err)
	}

	linkPath := filepath.Join(g.configDir(), name)
	if err := os.Symlink(functionDir, linkPath); err != nil {
		_ = os.RemoveAll(functionDir)
		return wrapPathErr("link HID function into configuration", err)
	}

	return nil
}

// RemoveHIDFunction unlinks and removes functions/hid.<instance>. Removing
// an absent function is a no-op.
func (g *Gadget) RemoveHIDFunction(instance string) error {
	name := "hid." + instance
	functionDir := g.functionDir(name)

	if _, err := os.Stat(functionDir); os.IsNotExist(err) {
		return nil
	}

	_ = os.Remove(filepath.Join(g.configDir(), name))

	if err := os.RemoveAll(functionDir); err != nil {
		return wrapPathErr("remove HID function directory", err)
	}

	return nil
}

// HIDDevicePath resolves the character device for functions/hid.<instance>.
// The function's dev attribute holds "major:minor"; the kernel names the
// device hidg<minor>.
func (g *Gadget) HIDDevicePath(instance string) (string, error) {
	content, err := readFile(filepath.Join(g.functionDir("hid."+instance), "dev"))
	if err != nil {
		return "", err
	}

	parts := strings.SplitN(strings.TrimSpace(content), ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: malformed dev attribute %q", ErrFunctionNotFound, content)
	}

	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: malformed dev minor %q", ErrFunctionNotFound, parts[1])
	}

	return filepath.Join(g.devRoot, fmt.Sprintf("hidg%d", minor)), nil
}
