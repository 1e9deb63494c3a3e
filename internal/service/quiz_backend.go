package service

import (
	"context"
	"fmt"
	"time"

	"github.com/stemsi/quizroom-backend/internal/model"
	"github.com/stemsi/quizroom-backend/internal/session"
)

var _ session.Backend = (*QuizBackend)(nil)

// QuizBackend serves a server-hosted session from the services directly.
type QuizBackend struct {
	questions *QuestionService
	attempts  *AttemptService
	results   *ResultService
	settings  *SettingService
}

// NewQuizBackend creates a new QuizBackend.
func NewQuizBackend(questions *QuestionService, attempts *AttemptService, results *ResultService, settings *SettingService) *QuizBackend {
	return &QuizBackend{
		questions: questions,
		attempts:  attempts,
		results:   results,
		settings:  settings,
	}
}

func (b *QuizBackend) FetchQuestions(ctx context.Context) ([]model.Question, error) {
	return b.questions.Bank(ctx)
}

func (b *QuizBackend) FetchPriorAttempt(ctx context.Context, userID int) (bool, error) {
	prior, err := b.attempts.Prior(ctx, userID)
	if err != nil {
		return false, err
	}
	return prior.HasAttempted, nil
}

func (b *QuizBackend) FetchQuizLiveStatus(ctx context.Context) (bool, error) {
	return b.settings.IsLive(ctx)
}

func (b *QuizBackend) AutoSaveAnswer(ctx context.Context, userID int, questionID, optionID string) error {
	return b.attempts.Autosave(ctx, userID, questionID, optionID)
}

func (b *QuizBackend) RecordStartTime(ctx context.Context, userID int, startedAt time.Time) error {
	return b.attempts.RecordStart(ctx, userID, startedAt)
}

func (b *QuizBackend) SubmitQuiz(ctx context.Context, userID int, sub model.Submission) (string, error) {
	attempt, err := b.attempts.Submit(ctx, userID, sub)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Quiz submitted: %d of %d questions answered.", attempt.Answered, attempt.TotalQuestions), nil
}

func (b *QuizBackend) FetchResults(ctx context.Context, userID int) (*model.QuizResults, error) {
	return b.results.GetResults(ctx, userID)
}
