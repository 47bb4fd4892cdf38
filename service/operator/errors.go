// SPDX-License-Identifier: BSD-3-Clause

package operator

import "errors"

var (
	// ErrNameEmpty indicates the operator has no name.
	ErrNameEmpty = errors.New("operator name empty")

	// ErrPanicked indicates the operator recovered a panic.
	ErrPanicked = errors.New("operator panicked")

	// ErrAddProcess indicates a service could not be added to the tree.
	ErrAddProcess = errors.New("failed to add process")

	// ErrConfigStore indicates the configuration store could not be opened.
	ErrConfigStore = errors.New("failed to open configuration store")
)
