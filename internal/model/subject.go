package model

// Subject is a selectable quiz subject together with the size of its question pool.
type Subject struct {
	Key           string `json:"key"`
	QuestionCount int    `json:"question_count"`
}
