// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !release

package device

import (
	"testing"

	"flowmill/common/daemon"
	"flowmill/common/helpers"
	"flowmill/common/reporter"
	"flowmill/inlet/device/provider/static"
)

// NewMock creates a new device component using a static provider
// resolving every exporter to the same handle.
func NewMock(t *testing.T, r *reporter.Reporter, config Configuration) *Component {
	t.Helper()
	if config.Provider.Config == nil {
		config.Provider.Config = static.Configuration{Default: 1}
	}
	if config.CacheSize == 0 {
		config.CacheSize = DefaultConfiguration().CacheSize
	}
	c, err := New(r, config, Dependencies{Daemon: daemon.NewMock(t)})
	if err != nil {
		t.Fatalf("New() error:\n%+v", err)
	}
	helpers.StartStop(t, c)
	return c
}
