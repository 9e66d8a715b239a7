// Package bot implements the core message-driven quiz dialogue.
//
// The manager routes inbound updates by kind:
//   - Commands drive the dialogue (/start, /template, /toggle, ...)
//   - Callback presses pick the anonymous / non-anonymous poll type
//   - Free text is parsed and validated as a quiz JSON document
//
// Valid quizzes are sent as native quiz polls with a rate-friendly
// delay between questions; every step is rate limited, measured and
// published to the event bus.
package bot
