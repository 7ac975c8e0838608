// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package cmd

import (
	"bytes"
	"testing"

	"flowmill/common/httpserver"
	"flowmill/common/reporter"
)

func TestHealthcheck(t *testing.T) {
	r := reporter.NewMock(t)
	h := httpserver.NewMock(t, r)
	h.GinRouter.GET("/api/v0/healthcheck", r.HealthcheckHTTPHandler)

	root := RootCmd
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"healthcheck", "--http", h.LocalAddr().String()})
	if err := root.Execute(); err != nil {
		t.Errorf("`healthcheck` error:\n%+v", err)
	}
}
