// SPDX-License-Identifier: BSD-3-Clause

// Package process adapts service.Service implementations into oversight
// child processes, converting panics into restartable errors.
package process
