// Package events provides event bus implementations for bot activity.
//
// Implementations:
//   - redis: Redis Streams with consumer groups
//   - memory: In-memory fan-out for tests and single-instance runs
package events
