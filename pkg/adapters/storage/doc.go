// Package storage provides session storage implementations.
//
// Implementations:
//   - redis: Redis with JSON serialization and retention TTL
//   - memory: In-memory for tests and single-instance deployments
package storage
