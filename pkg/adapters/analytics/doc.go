// Package analytics provides the activity counter store behind the
// /analytics endpoint.
//
// Implementations:
//   - postgres: append-only event rows aggregated with SQL
//   - memory: in-memory counters for tests and DB-less deployments
package analytics
