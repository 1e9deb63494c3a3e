package model

import "time"

// QuizAttempt is a completed (submitted) quiz of one user. A user has at most one.
type QuizAttempt struct {
	ID             int64      `json:"id"`
	UserID         int        `json:"user_id"`
	UserName       string     `json:"user_name,omitempty"`
	Subjects       []string   `json:"subjects"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	TotalQuestions int        `json:"total_questions"`
	Answered       int        `json:"answered"`
	Correct        int        `json:"correct"`
}

// PriorAttempt reports whether a user already completed the quiz.
type PriorAttempt struct {
	HasAttempted bool       `json:"has_attempted"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	// Autosaved maps question ID to the last auto-saved option ID of an
	// unfinished session.
	Autosaved map[string]string `json:"autosaved_answers,omitempty"`
}

// AttemptAnswer is one graded answer of a submitted attempt.
type AttemptAnswer struct {
	QuestionID       int64  `json:"question_id"`
	SelectedOptionID string `json:"selected_option_id"`
	IsCorrect        bool   `json:"is_correct"`
}
