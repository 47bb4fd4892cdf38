// SPDX-License-Identifier: BSD-3-Clause

//go:build linux
// +build linux

package mount

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

type mountSpec struct {
	source string
	target string
	fstype string
	flags  uintptr
	data   string
}

// EnsureConfigFS mounts configfs at /sys/kernel/config if it is not there
// yet. An existing mount is left alone; EBUSY from the kernel means someone
// else mounted it between our check and the call, which is fine.
func EnsureConfigFS() error {
	return ensureMount(mountSpec{
		source: "configfs",
		target: "/sys/kernel/config",
		fstype: "configfs",
		flags:  unix.MS_NODEV | unix.MS_NOEXEC | unix.MS_NOSUID,
	})
}

func ensureMount(m mountSpec) error {
	if mounted(m.target) {
		return nil
	}

	if err := os.MkdirAll(m.target, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMountFailed, m.target, err)
	}

	if err := unix.Mount(m.source, m.target, m.fstype, m.flags, m.data); err != nil {
		if errors.Is(err, unix.EBUSY) {
			return nil
		}
		return fmt.Errorf("%w: %s: %w", ErrMountFailed, m.target, err)
	}

	return nil
}

// mounted reports whether target is a mount point by comparing the device of
// target and its parent.
func mounted(target string) bool {
	var st, parent unix.Stat_t
	if err := unix.Stat(target, &st); err != nil {
		return false
	}
	if err := unix.Stat(target+"/..", &parent); err != nil {
		return false
	}
	return st.Dev != parent.Dev
}
