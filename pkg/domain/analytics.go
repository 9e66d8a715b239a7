package domain

import "time"

// Analytics event kinds. Command usage is recorded as "cmd_<name>".
const (
	KindUpdateReceived = "update_received"
	KindQuizSubmitted  = "quiz_submitted"
	KindQuizValid      = "quiz_valid"
	KindQuizInvalid    = "quiz_invalid"
	KindPollSent       = "poll_sent"
	KindPollFailed     = "poll_failed"
	KindQuizCompleted  = "quiz_completed"
	KindQuizPartial    = "quiz_partial"
	KindRateLimited    = "rate_limited"
	KindQuizGenerated  = "quiz_generated"
)

// AnalyticsSummary is the counter aggregation served by /analytics.
type AnalyticsSummary struct {
	Totals        map[string]int64 `json:"totals"`
	Last24h       map[string]int64 `json:"last_24h"`
	DistinctUsers int64            `json:"distinct_users"`
	GeneratedAt   time.Time        `json:"generated_at"`
}
