// Package ports defines the interfaces between the application layer
// and its adapters: session and analytics storage, rate limiting, the
// Telegram sender, the event bus, and metrics collection.
package ports
