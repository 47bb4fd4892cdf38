// SPDX-License-Identifier: BSD-3-Clause

package drive

import (
	"fmt"
	"io"
	"os"
)

// Attach marks the drive as connected to the target and freezes a snapshot
// of the image for host-side reads. Idempotent.
func (d *Drive) Attach() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.attached {
		return nil
	}
	if _, err := os.Stat(d.path); err != nil {
		return ErrNotInitialized
	}

	snap := d.path + ".snapshot"
	if err := copyFile(d.path, snap); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	d.snapshot = snap
	d.attached = true
	return nil
}

// Detach releases the snapshot; host-side access returns to the live image.
// Idempotent.
func (d *Drive) Detach() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.attached {
		return
	}
	if d.snapshot != "" {
		_ = os.Remove(d.snapshot)
		d.snapshot = ""
	}
	d.attached = false
}

// Attached reports whether the drive is connected to the target.
func (d *Drive) Attached() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attached
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
