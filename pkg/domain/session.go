package domain

import "time"

// SessionState tracks where a user is in the quiz-creation dialogue.
type SessionState string

const (
	// StateChoosingType means the user was shown the anonymous /
	// non-anonymous keyboard and has not picked yet.
	StateChoosingType SessionState = "choosing_type"

	// StateWaitingForJSON means the user picked a poll type and the
	// next text message is treated as a quiz document.
	StateWaitingForJSON SessionState = "waiting_for_json"
)

// Session is the per-user dialogue state. Sessions are transient: the
// cleanup task purges any session idle longer than the retention window.
type Session struct {
	UserID       int64        `json:"user_id"`
	ChatID       int64        `json:"chat_id"`
	FirstName    string       `json:"first_name,omitempty"`
	State        SessionState `json:"state"`
	Anonymous    bool         `json:"anonymous"`
	CreatedAt    time.Time    `json:"created_at"`
	LastActivity time.Time    `json:"last_activity"`
}

// NewSession creates a session in the initial dialogue state. New users
// default to anonymous polls, which can be forwarded to channels.
func NewSession(userID, chatID int64, firstName string) *Session {
	now := time.Now()
	return &Session{
		UserID:       userID,
		ChatID:       chatID,
		FirstName:    firstName,
		State:        StateChoosingType,
		Anonymous:    true,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Touch updates the last-activity timestamp.
func (s *Session) Touch() {
	s.LastActivity = time.Now()
}

// Expired reports whether the session has been idle longer than the
// retention window.
func (s *Session) Expired(retention time.Duration) bool {
	return time.Since(s.LastActivity) > retention
}
