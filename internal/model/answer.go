package model

import "time"

// StoredAnswer is the user's current choice for one question.
type StoredAnswer struct {
	QuestionID       string `json:"question_id"`
	SelectedOptionID string `json:"selected_option_id"`
	AnswerText       string `json:"answer_text"`
}

// SubmittedAnswer is one element of the bulk submission.
type SubmittedAnswer struct {
	QuestionID     string `json:"question_id" binding:"required,max=32"`
	SelectedOption string `json:"selected_option" binding:"required,max=20"`
}

// Submission is the bulk submission of a finished session.
// Subjects lets the server size the session for the score summary.
type Submission struct {
	Subjects []string          `json:"subjects" binding:"omitempty,max=20,dive,subject_key"`
	Answers  []SubmittedAnswer `json:"answers" binding:"max=1000,dive"`
}

// AutosaveRequest is the payload of a single best-effort answer save.
type AutosaveRequest struct {
	QuestionID string `json:"question_id" binding:"required,max=32"`
	OptionID   string `json:"option_id" binding:"required,max=20"`
}

// StartTimeRequest records when the student started the quiz.
type StartTimeRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
}
