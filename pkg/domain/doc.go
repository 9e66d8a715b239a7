// Package domain holds the core value types shared across the bot:
// the quiz JSON schema with its validation rules, per-user dialogue
// sessions, and analytics event kinds.
package domain
