// Package main hosts the economic dashboard entrypoint.
//
// Architecture overview:
//   - Loader: internal/loader.Loader fetches one dataset (colly over HTTP, GCS objects, local files or a Postgres
//     query), decodes it to UTF-8, runs the spreadsheet or scraped-JSON adapter and selects KPIs and chart series.
//     Every failure is captured on that dataset's outcome.
//   - Dispatcher: internal/dispatcher launches all declared datasets together and gathers them, in declaration order,
//     into a snapshot stamped in the display time zone.
//   - HTTP API: internal/api.Server renders the dashboard page and exposes snapshots, single datasets, chart presets,
//     health probes and Prometheus metrics. Nothing is cached; each request re-fetches its sources.
//   - Headless fallback: scraped datasets that opt in are re-rendered through chromedp when the static page looks
//     client-rendered and lacks the embedded array.
//   - Notifications: with pubsub.topic_name set, every outcome publishes a compact refresh notice.
//
// Quick checklist:
//   - Configure env vars: DASHBOARD_SERVER_PORT, DASHBOARD_HTTP_PROXY (use "" to fetch directly),
//     DASHBOARD_HEADLESS_ENABLED, DASHBOARD_PUBSUB_PROJECT_ID / DASHBOARD_PUBSUB_TOPIC_NAME,
//     DASHBOARD_DISPLAY_TIMEZONE. Datasets and chart presets come from the config file or the built-in defaults.
//     Overrides may also live in a .env file (-env-file).
//   - One-shot refresh: go run ./cmd/dashboard -once prints a snapshot as JSON.
//   - Serve: go run ./cmd/dashboard -config config.yaml, then open http://localhost:8080/.
package main
