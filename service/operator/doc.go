// SPDX-License-Identifier: BSD-3-Clause

// Package operator wires the appliance together: it loads the configuration
// store from the data directory, constructs every service from its config
// section, injects the OTG arbiter into the HID and MSD controllers, and
// runs everything under one oversight supervision tree with the embedded
// NATS server as the message bus. It bounds shutdown through the tree's
// per-service timeouts and sets no stop order of its own.
package operator
