// Package backup writes periodic JSON snapshots of sessions and
// analytics counters for the scheduled backup task.
package backup
