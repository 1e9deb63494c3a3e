package session

import "github.com/stemsi/quizroom-backend/internal/model"

// Status is the per-question progress shown in the navigation grid.
type Status string

const (
	StatusNotVisited     Status = "not-visited"
	StatusNotAnswered    Status = "not-answered"
	StatusAnswered       Status = "answered"
	StatusMarkedReview   Status = "marked-review"
	StatusAnsweredMarked Status = "answered-marked"
)

// Statuses lists every status in legend order.
var Statuses = []Status{
	StatusNotVisited,
	StatusNotAnswered,
	StatusAnswered,
	StatusMarkedReview,
	StatusAnsweredMarked,
}

// Marked reports whether the question is flagged for review.
func (s Status) Marked() bool {
	return s == StatusMarkedReview || s == StatusAnsweredMarked
}

// settle returns the status a question keeps once the student leaves it.
func (s Status) settle(answered bool) Status {
	switch {
	case s.Marked() && answered:
		return StatusAnsweredMarked
	case s.Marked():
		return StatusMarkedReview
	case answered:
		return StatusAnswered
	default:
		return StatusNotAnswered
	}
}

// VisitPolicy decides when a not-visited question becomes not-answered.
type VisitPolicy string

const (
	// MarkOnLeave settles a question's status only when the student navigates
	// away from it. The target of a navigation keeps whatever status it had.
	MarkOnLeave VisitPolicy = "leave"
	// MarkOnVisit additionally turns a not-visited target into not-answered.
	MarkOnVisit VisitPolicy = "visit"
)

// ParseVisitPolicy maps a configuration value to a policy, defaulting to MarkOnLeave.
func ParseVisitPolicy(v string) VisitPolicy {
	if VisitPolicy(v) == MarkOnVisit {
		return MarkOnVisit
	}
	return MarkOnLeave
}

// SessionQuestion is a question of the working set plus its session state.
type SessionQuestion struct {
	model.Question
	Status     Status `json:"status"`
	UserAnswer string `json:"user_answer,omitempty"`
}
