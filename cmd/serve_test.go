// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package cmd

import (
	"bytes"
	"testing"

	"flowmill/common/reporter"
)

func TestServeStart(t *testing.T) {
	r := reporter.NewMock(t)
	config := ServeConfiguration{}
	config.Reset()
	if err := serveStart(r, config, true); err != nil {
		t.Fatalf("serveStart() error:\n%+v", err)
	}
}

func TestServe(t *testing.T) {
	root := RootCmd
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"serve", "--check", "/dev/null"})
	err := root.Execute()
	if err != nil {
		t.Errorf("`serve` error:\n%+v", err)
	}
}
