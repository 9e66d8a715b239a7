// Package telegram wraps the Bot API client with retry, backoff and
// flood-control handling, and converts library updates into the
// transport-independent form consumed by the bot manager.
package telegram
