package model

import "time"

// Option is one selectable answer of a question. Its ID, not its position,
// is what gets stored as the user's answer.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is the student-facing form of a question (no answer key).
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
	Subject string   `json:"subject"`
}

// Option looks up an option by ID.
func (q Question) Option(id string) (Option, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// QuestionRecord is a stored question including its correct option.
type QuestionRecord struct {
	ID              int64     `json:"id"`
	Text            string    `json:"text"`
	Subject         string    `json:"subject"`
	Options         []Option  `json:"options"`
	CorrectOptionID string    `json:"correct_option_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// OptionInput is an option inside a question write request.
type OptionInput struct {
	ID   string `json:"id" binding:"required,max=20"`
	Text string `json:"text" binding:"required,min=1,max=1000"`
}

// QuestionRequest is the payload for creating or replacing a question.
type QuestionRequest struct {
	Text            string        `json:"text" binding:"required,min=1,max=4000"`
	Subject         string        `json:"subject" binding:"required,max=50,subject_key"`
	Options         []OptionInput `json:"options" binding:"required,min=2,max=10,dive"`
	CorrectOptionID string        `json:"correct_option_id" binding:"required,max=20"`
}

// PageQuery is the common pagination query.
type PageQuery struct {
	Page    int    `form:"page" binding:"omitempty,min=1"`
	PerPage int    `form:"per_page" binding:"omitempty,min=1,max=100"`
	Subject string `form:"subject" binding:"omitempty,max=50"`
}
