// SPDX-License-Identifier: BSD-3-Clause

//go:build linux
// +build linux

package usb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const msdInstance = "0"

// CreateMSDFunction creates the single mass_storage.0 function with one LUN
// and links it into c.1. The LUN starts with no backing file.
func (g *Gadget) CreateMSDFunction() error {
	name := "mass_storage." + msdInstance
	functionDir := g.functionDir(name)

	if _, err := os.Stat(functionDir); err == nil {
		return fmt.Errorf("%w: %s", ErrFunctionExists, name)
	}

	if err := os.MkdirAll(functionDir, 0o755); err != nil {
		return wrapPathErr("create mass storage function directory", err)
	}

	if err := writeFile(filepath.Join(functionDir, "stall"), "1"); err != nil {
		_ = os.RemoveAll(functionDir)
		return fmt.Errorf("failed to write mass storage stall: %w", err)
	}

	lunDir := filepath.Join(functionDir, "lun.0")
	if err := os.MkdirAll(lunDir, 0o755); err != nil {
		_ = os.RemoveAll(functionDir)
		return wrapPathErr("create mass storage LUN directory", err)
	}

	lunAttrs := map[string]string{
		"cdrom":          "0",
		"ro":             "0",
		"removable":      "1",
		"nofua":          "0",
		"file":           "",
		"inquiry_string": "One-KVM Virtual Media",
	}
	for attr, value := range lunAttrs {
		if err := writeFile(filepath.Join(lunDir, attr), value); err != nil {
			_ = os.RemoveAll(functionDir)
			return fmt.Errorf("failed to write mass storage LUN %s: %w", attr, err)
		}
	}

	linkPath := filepath.Join(g.configDir(), name)
	if err := os.Symlink(functionDir, linkPath); err != nil {
		_ = os.RemoveAll(functionDir)
		return wrapPathErr("link mass storage function into configuration", err)
	}

	return nil
}

// RemoveMSDFunction unlinks and removes mass_storage.0. Removing an absent
// function is a no-op.
func (g *Gadget) RemoveMSDFunction() error {
	name := "mass_storage." + msdInstance
	functionDir := g.functionDir(name)

	if _, err := os.Stat(functionDir); os.IsNotExist(err) {
		return nil
	}

	_ = os.Remove(filepath.Join(g.configDir(), name))

	if err := os.RemoveAll(functionDir); err != nil {
		return wrapPathErr("remove mass storage function directory", err)
	}

	return nil
}

func (g *Gadget) lunDir() string {
	return filepath.Join(g.functionDir("mass_storage."+msdInstance), "lun.0")
}

// SetMSDBacking points lun.0 at the backing file with the given modes. The
// cdrom and ro flags must be written before the file; the kernel refuses
// mode changes while a file is attached.
func (g *Gadget) SetMSDBacking(path string, readOnly, cdrom bool) error {
	lun := g.lunDir()
	if _, err := os.Stat(lun); os.IsNotExist(err) {
		return fmt.Errorf("%w: mass_storage.%s", ErrFunctionNotFound, msdInstance)
	}

	if err := writeFile(filepath.Join(lun, "cdrom"), boolAttr(cdrom)); err != nil {
		return fmt.Errorf("failed to set cdrom mode: %w", err)
	}
	if err := writeFile(filepath.Join(lun, "ro"), boolAttr(readOnly)); err != nil {
		return fmt.Errorf("failed to set read-only flag: %w", err)
	}
	if err := writeFile(filepath.Join(lun, "file"), path); err != nil {
		return fmt.Errorf("failed to set mass storage file: %w", err)
	}

	return nil
}

// ClearMSDBacking detaches the backing file from lun.0.
func (g *Gadget) ClearMSDBacking() error {
	lun := g.lunDir()
	if _, err := os.Stat(lun); os.IsNotExist(err) {
		return fmt.Errorf("%w: mass_storage.%s", ErrFunctionNotFound, msdInstance)
	}

	if err := writeFile(filepath.Join(lun, "file"), "\n"); err != nil {
		return fmt.Errorf("failed to clear mass storage file: %w", err)
	}

	return nil
}

// MSDBacking returns the current backing file path, or "" when detached.
// The kernel's forced_eject clears the file behind our back when the target
// ejects the medium; polling this is how ejection is observed.
func (g *Gadget) MSDBacking() (string, error) {
	content, err := readFile(filepath.Join(g.lunDir(), "file"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func boolAttr(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
