package model

import "time"

// Violation is an anti-cheat notification raised during a session,
// kept for administrators to review.
type Violation struct {
	UserID     int       `json:"user_id"`
	Kind       string    `json:"kind"`
	Detail     string    `json:"detail"`
	RecordedAt time.Time `json:"recorded_at"`
}
