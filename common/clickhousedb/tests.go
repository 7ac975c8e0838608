// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !release

package clickhousedb

import (
	"testing"

	"flowmill/common/daemon"
	"flowmill/common/helpers"
	"flowmill/common/reporter"
)

// NewMock creates a new ClickHouse component. The underlying driver
// connects lazily, so as long as nothing issues a query, no server is
// needed.
func NewMock(t *testing.T, r *reporter.Reporter) *Component {
	t.Helper()
	c, err := New(r, DefaultConfiguration(), Dependencies{
		Daemon: daemon.NewMock(t),
	})
	if err != nil {
		t.Fatalf("New() error:\n%+v", err)
	}
	helpers.StartStop(t, c)
	return c
}
