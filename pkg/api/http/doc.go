// Package http provides the HTTP monitoring and ingestion surface.
//
// The server exposes endpoints for:
//   - Health checks and runtime diagnostics
//   - Usage analytics
//   - Prometheus metrics
//   - Telegram webhook ingestion
package http
