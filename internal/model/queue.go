package model

import "time"

// AutosaveEvent is queued for every best-effort answer save.
type AutosaveEvent struct {
	UserID     int       `json:"user_id"`
	QuestionID int64     `json:"question_id"`
	OptionID   string    `json:"option_id"`
	SavedAt    time.Time `json:"saved_at"`
}

// StartEvent is queued when a student starts the quiz.
type StartEvent struct {
	UserID    int       `json:"user_id"`
	StartedAt time.Time `json:"started_at"`
}
