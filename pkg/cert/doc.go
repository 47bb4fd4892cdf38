// SPDX-License-Identifier: BSD-3-Clause

// Package cert maintains the TLS material under <data_dir>/certs that the
// HTTP host serves HTTPS from. When no certificate exists a self-signed one
// is generated for the appliance hostname.
package cert
