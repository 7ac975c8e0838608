// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package cmd

import (
	"flowmill/common/httpserver"
	"flowmill/common/reporter"
)

// addCommonHTTPHandlers configures the endpoints common to all
// services under the `/api/v0` namespace.
func addCommonHTTPHandlers(r *reporter.Reporter, httpComponent *httpserver.Component) {
	httpComponent.AddHandler("/api/v0/metrics", r.MetricsHTTPHandler())
	httpComponent.GinRouter.GET("/api/v0/healthcheck", r.HealthcheckHTTPHandler)
	httpComponent.GinRouter.GET("/api/v0/version", versionHandler)
}
