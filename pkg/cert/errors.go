// SPDX-License-Identifier: BSD-3-Clause

package cert

import "errors"

var (
	// ErrKeyGeneration indicates the private key could not be generated.
	ErrKeyGeneration = errors.New("failed to generate private key")

	// ErrCertCreation indicates the certificate could not be created.
	ErrCertCreation = errors.New("failed to create certificate")

	// ErrCertWrite indicates the certificate or key could not be written.
	ErrCertWrite = errors.New("failed to write certificate material")
)
