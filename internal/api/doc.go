// Package api hosts the HTTP server, middleware, and handlers for the dashboard.
// Notable routes:
//   - GET / renders the dashboard page from a fresh snapshot.
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/dashboard and /v1/datasets/{name} return outcomes as JSON.
//   - GET /v1/charts returns the configured chart presets.
package api
