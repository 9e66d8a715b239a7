// Package ratelimit provides sliding-window request limiters.
//
// Implementations:
//   - memory: per-user timestamp windows, pruned on each check
//   - redis: weighted two-bucket counters shared across instances
package ratelimit
