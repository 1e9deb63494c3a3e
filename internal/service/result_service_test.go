package service

import (
	"testing"
	"time"

	"github.com/stemsi/quizroom-backend/internal/model"
)

func TestBuildResults(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	attempt := &model.QuizAttempt{
		ID:             1,
		Subjects:       []string{"science", "math"},
		StartedAt:      &started,
		SubmittedAt:    started.Add(12 * time.Minute),
		TotalQuestions: 3,
	}
	answers := []model.AttemptAnswer{
		{QuestionID: 1, SelectedOptionID: "a", IsCorrect: true},
		{QuestionID: 3, SelectedOptionID: "a", IsCorrect: false},
	}

	res := BuildResults(testBank(), attempt, answers)

	order := make([]string, 0, len(res.Results))
	for _, d := range res.Results {
		order = append(order, d.QuestionID)
	}
	if got := len(order); got != 3 || order[0] != "3" || order[1] != "1" || order[2] != "2" {
		t.Fatalf("order = %v, want science first then math", order)
	}

	sci := res.Results[0]
	if sci.SelectedText != "London" || sci.CorrectText != "Rome" || sci.IsCorrect {
		t.Errorf("science detail = %+v", sci)
	}
	if res.Results[2].SelectedOptionID != "" {
		t.Errorf("unanswered question has a selection: %+v", res.Results[2])
	}

	sum := res.Summary
	if sum.TotalQuestions != 3 || sum.Answered != 2 || sum.Correct != 1 || sum.Incorrect != 1 || sum.Unanswered != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.ScorePercent != 33.33 {
		t.Errorf("score = %v, want 33.33", sum.ScorePercent)
	}
	if sum.DurationSeconds != 720 {
		t.Errorf("duration = %d, want 720", sum.DurationSeconds)
	}
	if sum.BySubject["math"] != (model.SubjectScore{Answered: 1, Correct: 1}) {
		t.Errorf("math score = %+v", sum.BySubject["math"])
	}
}

func TestBuildResultsWithoutStartTime(t *testing.T) {
	attempt := &model.QuizAttempt{SubmittedAt: time.Now()}
	res := BuildResults(testBank(), attempt, nil)
	if len(res.Results) != 0 || res.Summary.ScorePercent != 0 || res.Summary.DurationSeconds != 0 {
		t.Fatalf("results = %+v", res)
	}
}
