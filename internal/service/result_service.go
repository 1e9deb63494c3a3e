package service

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizroom-backend/internal/model"
	"github.com/stemsi/quizroom-backend/internal/repository"
)

// ResultService builds the graded view of a submitted attempt.
type ResultService struct {
	attemptRepo     *repository.AttemptRepository
	questionService *QuestionService
	log             zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(attemptRepo *repository.AttemptRepository, questionService *QuestionService, log zerolog.Logger) *ResultService {
	return &ResultService{
		attemptRepo:     attemptRepo,
		questionService: questionService,
		log:             log.With().Str("component", "result_service").Logger(),
	}
}

// GetResults returns the user's results, or ErrNoAttempt before submission.
func (s *ResultService) GetResults(ctx context.Context, userID int) (*model.QuizResults, error) {
	attempt, err := s.attemptRepo.GetByUser(ctx, userID)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNoAttempt
		}
		return nil, err
	}

	answers, err := s.attemptRepo.ListAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}
	records, err := s.questionService.Records(ctx)
	if err != nil {
		return nil, err
	}
	return BuildResults(records, attempt, answers), nil
}

// BuildResults lists every question of the attempted subjects, answered or
// not, grouped in subject selection order.
func BuildResults(records []model.QuestionRecord, attempt *model.QuizAttempt, answers []model.AttemptAnswer) *model.QuizResults {
	byQuestion := make(map[int64]model.AttemptAnswer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	rank := func(subject string) int {
		if i := slices.Index(attempt.Subjects, subject); i >= 0 {
			return i
		}
		return len(attempt.Subjects)
	}

	included := make([]model.QuestionRecord, 0, len(records))
	for _, q := range records {
		_, answered := byQuestion[q.ID]
		if answered || slices.Contains(attempt.Subjects, q.Subject) {
			included = append(included, q)
		}
	}
	slices.SortStableFunc(included, func(a, b model.QuestionRecord) int {
		if c := cmp.Compare(rank(a.Subject), rank(b.Subject)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	summary := model.ResultSummary{
		StartedAt:   attempt.StartedAt,
		SubmittedAt: attempt.SubmittedAt,
		BySubject:   make(map[string]model.SubjectScore),
	}
	details := make([]model.ResultDetail, 0, len(included))

	for _, q := range included {
		d := model.ResultDetail{
			QuestionID:      strconv.FormatInt(q.ID, 10),
			QuestionText:    q.Text,
			Subject:         q.Subject,
			CorrectOptionID: q.CorrectOptionID,
			CorrectText:     optionText(q.Options, q.CorrectOptionID),
		}
		score := summary.BySubject[q.Subject]
		if a, ok := byQuestion[q.ID]; ok {
			d.SelectedOptionID = a.SelectedOptionID
			d.SelectedText = optionText(q.Options, a.SelectedOptionID)
			d.IsCorrect = a.IsCorrect
			summary.Answered++
			score.Answered++
			if a.IsCorrect {
				summary.Correct++
				score.Correct++
			}
		}
		summary.BySubject[q.Subject] = score
		details = append(details, d)
	}

	summary.TotalQuestions = max(len(details), attempt.TotalQuestions)
	summary.Incorrect = summary.Answered - summary.Correct
	summary.Unanswered = summary.TotalQuestions - summary.Answered
	if summary.TotalQuestions > 0 {
		pct := float64(summary.Correct) / float64(summary.TotalQuestions) * 100
		summary.ScorePercent = math.Round(pct*100) / 100
	}
	if attempt.StartedAt != nil && attempt.SubmittedAt.After(*attempt.StartedAt) {
		summary.DurationSeconds = int64(attempt.SubmittedAt.Sub(*attempt.StartedAt).Seconds())
	}

	return &model.QuizResults{Results: details, Summary: summary}
}

func optionText(options []model.Option, id string) string {
	for _, o := range options {
		if o.ID == id {
			return o.Text
		}
	}
	return ""
}
