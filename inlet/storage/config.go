// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package storage

import "time"

// Configuration describes the configuration for the storage component.
type Configuration struct {
	// Table is the name of the flow table.
	Table string `validate:"required"`
	// Timeout bounds each storage call.
	Timeout time.Duration `validate:"min=100ms"`
}

// DefaultConfiguration represents the default configuration for the
// storage component.
func DefaultConfiguration() Configuration {
	return Configuration{
		Table:   "flows",
		Timeout: 5 * time.Second,
	}
}
