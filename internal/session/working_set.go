package session

import (
	"cmp"
	"slices"

	"github.com/stemsi/quizroom-backend/internal/model"
)

// BuildWorkingSet keeps the bank questions whose subject was selected and
// orders them by the position of their subject in subjects. Within a subject
// the bank order is kept. The first question starts as not-answered, the rest
// as not-visited.
func BuildWorkingSet(bank []model.Question, subjects []string) []SessionQuestion {
	rank := make(map[string]int, len(subjects))
	for i, s := range subjects {
		if _, dup := rank[s]; !dup {
			rank[s] = i
		}
	}

	out := make([]SessionQuestion, 0, len(bank))
	for _, q := range bank {
		if _, ok := rank[q.Subject]; ok {
			out = append(out, SessionQuestion{Question: q, Status: StatusNotVisited})
		}
	}
	slices.SortStableFunc(out, func(a, b SessionQuestion) int {
		return cmp.Compare(rank[a.Subject], rank[b.Subject])
	})

	if len(out) > 0 {
		out[0].Status = StatusNotAnswered
	}
	return out
}

// reconcile keeps only the answers that still point at a question and option
// of the working set, and applies them to the question statuses.
func reconcile(questions []SessionQuestion, answers map[string]model.StoredAnswer) map[string]model.StoredAnswer {
	out := make(map[string]model.StoredAnswer, len(answers))
	for i := range questions {
		q := &questions[i]
		a, ok := answers[q.ID]
		if !ok {
			continue
		}
		opt, ok := q.Option(a.SelectedOptionID)
		if !ok {
			continue
		}
		out[q.ID] = model.StoredAnswer{
			QuestionID:       q.ID,
			SelectedOptionID: opt.ID,
			AnswerText:       opt.Text,
		}
		q.Status = StatusAnswered
		q.UserAnswer = opt.Text
	}
	return out
}
