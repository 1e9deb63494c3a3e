package model

import "time"

// ResultDetail is the graded view of a single question.
type ResultDetail struct {
	QuestionID       string `json:"question_id"`
	QuestionText     string `json:"question_text"`
	Subject          string `json:"subject"`
	SelectedOptionID string `json:"selected_option_id,omitempty"`
	SelectedText     string `json:"selected_text,omitempty"`
	CorrectOptionID  string `json:"correct_option_id"`
	CorrectText      string `json:"correct_text"`
	IsCorrect        bool   `json:"is_correct"`
}

// SubjectScore aggregates a summary per subject.
type SubjectScore struct {
	Answered int `json:"answered"`
	Correct  int `json:"correct"`
}

// ResultSummary aggregates a submitted attempt.
type ResultSummary struct {
	TotalQuestions  int                     `json:"total_questions"`
	Answered        int                     `json:"answered"`
	Correct         int                     `json:"correct"`
	Incorrect       int                     `json:"incorrect"`
	Unanswered      int                     `json:"unanswered"`
	ScorePercent    float64                 `json:"score_percent"`
	StartedAt       *time.Time              `json:"started_at,omitempty"`
	SubmittedAt     time.Time               `json:"submitted_at"`
	DurationSeconds int64                   `json:"duration_seconds,omitempty"`
	BySubject       map[string]SubjectScore `json:"by_subject"`
}

// QuizResults is what the results page renders.
type QuizResults struct {
	Results []ResultDetail `json:"results"`
	Summary ResultSummary  `json:"summary"`
}
