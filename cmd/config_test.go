// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"flowmill/common/helpers"
)

func TestConfigParse(t *testing.T) {
	config := `---
core:
 workers: 3
 target-flush-latency: 50ms
storage:
 table: netflows
`
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(config), 0o644); err != nil {
		t.Fatalf("WriteFile() error:\n%+v", err)
	}

	parsed := ServeConfiguration{}
	parsed.Reset()
	c := ConfigRelatedOptions{Path: configFile}
	if err := c.Parse(bytes.NewBuffer(nil), "serve", &parsed); err != nil {
		t.Fatalf("Parse() error:\n%+v", err)
	}

	expected := ServeConfiguration{}
	expected.Reset()
	expected.Core.Workers = 3
	expected.Core.TargetFlushLatency = 50 * time.Millisecond
	expected.Storage.Table = "netflows"
	if diff := helpers.Diff(parsed, expected); diff != "" {
		t.Fatalf("Parse() (-got, +want):\n%s", diff)
	}
}

func TestConfigEnvOverride(t *testing.T) {
	t.Setenv("FLOWMILL_SERVE_CORE_WORKERS", "5")
	t.Setenv("FLOWMILL_SERVE_CLICKHOUSE_SERVERS", "192.0.2.10:9000,192.0.2.11:9000")

	parsed := ServeConfiguration{}
	parsed.Reset()
	c := ConfigRelatedOptions{}
	if err := c.Parse(bytes.NewBuffer(nil), "serve", &parsed); err != nil {
		t.Fatalf("Parse() error:\n%+v", err)
	}

	if parsed.Core.Workers != 5 {
		t.Errorf("Parse() core workers == %d, expected 5", parsed.Core.Workers)
	}
	expectedServers := []string{"192.0.2.10:9000", "192.0.2.11:9000"}
	if diff := helpers.Diff(parsed.ClickHouse.Servers, expectedServers); diff != "" {
		t.Errorf("Parse() ClickHouse servers (-got, +want):\n%s", diff)
	}
}
