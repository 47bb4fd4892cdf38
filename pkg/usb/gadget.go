// SPDX-License-Identifier: BSD-3-Clause

//go:build linux
// +build linux

package usb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

const (
	// DefaultConfigFSRoot is where the kernel exposes the gadget tree.
	DefaultConfigFSRoot = "/sys/kernel/config/usb_gadget"

	// DefaultUDCRoot is where UDC class devices appear.
	DefaultUDCRoot = "/sys/class/udc"

	// DefaultDevRoot is where hidg character devices appear.
	DefaultDevRoot = "/dev"

	configName = "c.1"
	langDir    = "0x409"
)

// Gadget is a handle on one configfs gadget directory.
type Gadget struct {
	config *GadgetConfig

	configfsRoot string
	udcRoot      string
	devRoot      string
}

// NewGadget creates a handle with the default kernel paths.
func NewGadget(config *GadgetConfig) (*Gadget, error) {
	return NewGadgetAt(config, DefaultConfigFSRoot, DefaultUDCRoot, DefaultDevRoot)
}

// NewGadgetAt creates a handle with explicit roots. Tests point this at a
// temporary directory.
func NewGadgetAt(config *GadgetConfig, configfsRoot, udcRoot, devRoot string) (*Gadget, error) {
	if config == nil || config.Name == "" {
		return nil, ErrInvalidConfig
	}
	return &Gadget{
		config:       config,
		configfsRoot: configfsRoot,
		udcRoot:      udcRoot,
		devRoot:      devRoot,
	}, nil
}

// Name returns the gadget name.
func (g *Gadget) Name() string {
	return g.config.Name
}

func (g *Gadget) dir() string {
	return filepath.Join(g.configfsRoot, g.config.Name)
}

func (g *Gadget) configDir() string {
	return filepath.Join(g.dir(), "configs", configName)
}

func (g *Gadget) functionDir(name string) string {
	return filepath.Join(g.dir(), "functions", name)
}

// Exists reports whether the gadget directory is present.
func (g *Gadget) Exists() bool {
	_, err := os.Stat(g.dir())
	return err == nil
}

// Create builds the gadget skeleton: identity attributes, string
// descriptors and the single configuration c.1. Functions are added
// separately.
func (g *Gadget) Create(ctx context.Context) error {
	if _, err := os.Stat(g.configfsRoot); os.IsNotExist(err) {
		return ErrConfigFSNotMounted
	}
	if g.Exists() {
		return ErrGadgetExists
	}

	dir := g.dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return wrapPathErr("create gadget directory", err)
	}

	attrs := map[string]string{
		"bcdUSB":    "0x0200",
		"idVendor":  g.config.VendorID,
		"idProduct": g.config.ProductID,
		"bcdDevice": "0x0100",
	}
	for attr, value := range attrs {
		if err := writeFile(filepath.Join(dir, attr), value); err != nil {
			_ = os.RemoveAll(dir)
			return fmt.Errorf("failed to write %s: %w", attr, err)
		}
	}

	stringsDir := filepath.Join(dir, "strings", langDir)
	if err := os.MkdirAll(stringsDir, 0o755); err != nil {
		_ = os.RemoveAll(dir)
		return wrapPathErr("create strings directory", err)
	}
	strs := map[string]string{
		"serialnumber": g.config.SerialNumber,
		"manufacturer": g.config.Manufacturer,
		"product":      g.config.Product,
	}
	for str, value := range strs {
		if err := writeFile(filepath.Join(stringsDir, str), value); err != nil {
			_ = os.RemoveAll(dir)
			return fmt.Errorf("failed to write %s: %w", str, err)
		}
	}

	configDir := g.configDir()
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		_ = os.RemoveAll(dir)
		return wrapPathErr("create configuration directory", err)
	}

	maxPower := g.config.MaxPower
	if maxPower == 0 {
		maxPower = 250
	}
	if err := writeFile(filepath.Join(configDir, "MaxPower"), fmt.Sprintf("%d", maxPower)); err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("failed to write MaxPower: %w", err)
	}

	configStrings := filepath.Join(configDir, "strings", langDir)
	if err := os.MkdirAll(configStrings, 0o755); err != nil {
		_ = os.RemoveAll(dir)
		return wrapPathErr("create config strings directory", err)
	}
	if err := writeFile(filepath.Join(configStrings, "configuration"), "Config 1: KVM"); err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("failed to write configuration string: %w", err)
	}

	return nil
}

// Destroy unbinds the gadget and removes its directory tree. Function
// symlinks are removed before the function directories so the kernel
// accepts the teardown order.
func (g *Gadget) Destroy(ctx context.Context) error {
	if !g.Exists() {
		return ErrGadgetNotFound
	}

	if err := g.Unbind(ctx); err != nil && err != ErrGadgetNotBound {
		return fmt.Errorf("failed to unbind gadget: %w", err)
	}

	configDir := g.configDir()
	if entries, err := os.ReadDir(configDir); err == nil {
		for _, entry := range entries {
			if entry.Type()&os.ModeSymlink != 0 {
				_ = os.Remove(filepath.Join(configDir, entry.Name()))
			}
		}
	}

	if err := os.RemoveAll(g.dir()); err != nil {
		return wrapPathErr("remove gadget directory", err)
	}

	return nil
}

// Bind attaches the gadget to the named UDC, or to the first available one
// when udc is empty. Returns the UDC name used.
func (g *Gadget) Bind(ctx context.Context, udc string) (string, error) {
	if !g.Exists() {
		return "", ErrGadgetNotFound
	}

	if udc == "" {
		var err error
		udc, err = g.FirstUDC()
		if err != nil {
			return "", err
		}
	}

	if err := writeFile(filepath.Join(g.dir(), "UDC"), udc); err != nil {
		return "", fmt.Errorf("failed to bind gadget to UDC: %w", err)
	}

	return udc, nil
}

// Unbind detaches the gadget from its UDC. ErrGadgetNotBound is returned
// when it was not bound; callers treating rebind as idempotent ignore it.
func (g *Gadget) Unbind(ctx context.Context) error {
	if !g.Exists() {
		return ErrGadgetNotFound
	}

	bound, err := g.BoundUDC()
	if err != nil {
		return err
	}
	if bound == "" {
		return ErrGadgetNotBound
	}

	if err := writeFile(filepath.Join(g.dir(), "UDC"), "\n"); err != nil {
		return fmt.Errorf("failed to unbind gadget from UDC: %w", err)
	}

	return nil
}

// BoundUDC returns the UDC the gadget is bound to, or "" when unbound. A
// missing UDC attribute (freshly created tree) reads as unbound.
func (g *Gadget) BoundUDC() (string, error) {
	content, err := readFile(filepath.Join(g.dir(), "UDC"))
	if err != nil {
		if err == ErrFunctionNotFound {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// UDCState reads the state file of the named UDC ("configured",
// "addressed", "not attached", ...).
func (g *Gadget) UDCState(udc string) (string, error) {
	content, err := readFile(filepath.Join(g.udcRoot, udc, "state"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// WaitConnected polls the UDC state until it reports "configured" or
// "addressed", the timeout elapses, or ctx ends.
func (g *Gadget) WaitConnected(ctx context.Context, udc string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		state, err := g.UDCState(udc)
		if err == nil && (state == "configured" || state == "addressed") {
			return nil
		}

		if time.Now().After(deadline) {
			return ErrBindTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// FirstUDC returns the name of the first UDC present on the system.
func (g *Gadget) FirstUDC() (string, error) {
	entries, err := os.ReadDir(g.udcRoot)
	if err != nil || len(entries) == 0 {
		return "", ErrUDCNotFound
	}
	return entries[0].Name(), nil
}

func wrapPathErr(op string, err error) error {
	if os.IsPermission(err) {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, op)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func writeFile(path, content string) error {
	err := os.WriteFile(path, []byte(content), 0o644)
	if err != nil {
		if os.IsPermission(err) {
			return ErrPermissionDenied
		}
		if pathErr, ok := err.(*os.PathError); ok && pathErr.Err == syscall.ENOENT {
			return ErrFunctionNotFound
		}
	}
	return err
}

func readFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrFunctionNotFound
		}
		if os.IsPermission(err) {
			return "", ErrPermissionDenied
		}
		return "", err
	}
	return string(content), nil
}
