package service

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizroom-backend/internal/config"
	"github.com/stemsi/quizroom-backend/internal/model"
)

func TestGrade(t *testing.T) {
	sub := model.Submission{
		Subjects: []string{"math", "science"},
		Answers: []model.SubmittedAnswer{
			{QuestionID: "1", SelectedOption: "a"},
			{QuestionID: "2", SelectedOption: "c"},
			{QuestionID: "1", SelectedOption: "b"},
		},
	}

	attempt, answers, stale := Grade(testBank(), sub)
	if len(stale) != 0 {
		t.Fatalf("stale = %v", stale)
	}
	if attempt.TotalQuestions != 3 {
		t.Errorf("total = %d, want 3 (math + science pool)", attempt.TotalQuestions)
	}
	if attempt.Answered != 2 || attempt.Correct != 1 {
		t.Errorf("answered = %d correct = %d, want 2 and 1", attempt.Answered, attempt.Correct)
	}
	if len(answers) != 2 || !answers[0].IsCorrect || answers[1].IsCorrect {
		t.Fatalf("answers = %+v", answers)
	}
}

func TestGradeWithoutSubjects(t *testing.T) {
	attempt, _, _ := Grade(testBank(), model.Submission{
		Answers: []model.SubmittedAnswer{{QuestionID: "4", SelectedOption: "a"}},
	})
	if attempt.TotalQuestions != 1 || attempt.Correct != 1 {
		t.Fatalf("attempt = %+v", attempt)
	}
	if attempt.Subjects == nil {
		t.Fatal("subjects must not be nil")
	}
}

func TestGradeSkipsStaleAnswers(t *testing.T) {
	attempt, answers, stale := Grade(testBank(), model.Submission{
		Subjects: []string{"math"},
		Answers: []model.SubmittedAnswer{
			{QuestionID: "99", SelectedOption: "a"},
			{QuestionID: "1", SelectedOption: "zz"},
			{QuestionID: "2", SelectedOption: "b"},
		},
	})
	if !slices.Equal(stale, []string{"99", "1"}) {
		t.Fatalf("stale = %v, want [99 1]", stale)
	}
	if len(answers) != 1 || answers[0].QuestionID != 2 {
		t.Fatalf("answers = %+v", answers)
	}
	if attempt.Answered != 1 {
		t.Fatalf("answered = %d, want 1", attempt.Answered)
	}
}

func TestAutosave(t *testing.T) {
	qs, rdb, mr := newCachedQuestionService(t)
	s := NewAttemptService(nil, qs, rdb, zerolog.Nop())
	ctx := context.Background()

	if err := s.Autosave(ctx, 7, "2", "b"); err != nil {
		t.Fatalf("Autosave: %v", err)
	}
	if got := mr.HGet(config.CacheKey.QuizAutosaveKey(7), "2"); got != "b" {
		t.Fatalf("autosaved option = %q", got)
	}

	queued, err := mr.List(config.WorkerKey.PersistAutosaveQueue)
	if err != nil || len(queued) != 1 {
		t.Fatalf("queue = %v, %v", queued, err)
	}
	var ev model.AutosaveEvent
	if err := json.Unmarshal([]byte(queued[0]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.UserID != 7 || ev.QuestionID != 2 || ev.OptionID != "b" {
		t.Fatalf("event = %+v", ev)
	}

	if err := s.Autosave(ctx, 7, "abc", "a"); !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("bad id error = %v", err)
	}
	if err := s.Autosave(ctx, 7, "2", "x"); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("bad option error = %v", err)
	}
}

func TestRecordStartKeepsFirst(t *testing.T) {
	qs, rdb, mr := newCachedQuestionService(t)
	s := NewAttemptService(nil, qs, rdb, zerolog.Nop())
	ctx := context.Background()

	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := s.RecordStart(ctx, 3, first); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordStart(ctx, 3, first.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	got := s.startedAt(ctx, 3)
	if got == nil || !got.Equal(first) {
		t.Fatalf("startedAt = %v, want %v", got, first)
	}
	queued, _ := mr.List(config.WorkerKey.PersistStartQueue)
	if len(queued) != 1 {
		t.Fatalf("start events queued = %d, want 1", len(queued))
	}
}
