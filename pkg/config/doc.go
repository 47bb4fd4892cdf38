// SPDX-License-Identifier: BSD-3-Clause

// Package config is the typed configuration store: named sections persisted
// as JSON rows in <data_dir>/config.db and read through an atomic snapshot
// pointer so hot paths never take the store lock. Updates patch one whole
// section, persist it, then swap the snapshot.
package config
