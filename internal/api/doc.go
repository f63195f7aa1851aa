// Package api hosts the admin HTTP server used to review held candidates.
// Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/queue lists the review queue, highest score first.
//   - POST /v1/queue/{id}/approve marks an entry for the next approve run.
//   - DELETE /v1/queue/{id} dismisses an entry.
//   - GET /v1/published/pending lists reserved records that never published.
//
// The /v1 routes require the X-API-Key header when an API key is configured.
package api
