// SPDX-License-Identifier: BSD-3-Clause

package mount

import "errors"

var (
	// ErrMountFailed indicates a required filesystem could not be mounted.
	ErrMountFailed = errors.New("mount failed")

	// ErrNotMounted indicates a required filesystem is not mounted and could not be verified.
	ErrNotMounted = errors.New("filesystem not mounted")
)
