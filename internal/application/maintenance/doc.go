// Package maintenance runs the scheduled background tasks: expired
// session cleanup, periodic backups and the runtime health probe whose
// snapshot backs the health endpoint.
package maintenance
