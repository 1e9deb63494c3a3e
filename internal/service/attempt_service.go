package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizroom-backend/internal/config"
	"github.com/stemsi/quizroom-backend/internal/model"
	"github.com/stemsi/quizroom-backend/internal/repository"
	"github.com/stemsi/quizroom-backend/internal/response"
)

var (
	ErrAlreadyAttempted = errors.New("quiz already submitted")
	ErrNoAttempt        = errors.New("no submitted attempt")
	ErrUnknownQuestion  = errors.New("unknown question")
	ErrInvalidOption    = errors.New("option does not belong to question")
)

// AttemptService records auto-saves, start times and the final submission
// of a student's single attempt.
type AttemptService struct {
	attemptRepo     *repository.AttemptRepository
	questionService *QuestionService
	rdb             *redis.Client
	log             zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(attemptRepo *repository.AttemptRepository, questionService *QuestionService, rdb *redis.Client, log zerolog.Logger) *AttemptService {
	return &AttemptService{
		attemptRepo:     attemptRepo,
		questionService: questionService,
		rdb:             rdb,
		log:             log.With().Str("component", "attempt_service").Logger(),
	}
}

// Prior reports whether the user already submitted and, if not, what was
// auto-saved so far.
func (s *AttemptService) Prior(ctx context.Context, userID int) (model.PriorAttempt, error) {
	prior, err := s.attemptRepo.Prior(ctx, userID)
	if err != nil {
		return prior, err
	}
	if prior.HasAttempted {
		return prior, nil
	}

	saved, err := s.rdb.HGetAll(ctx, config.CacheKey.QuizAutosaveKey(userID)).Result()
	if err != nil {
		s.log.Warn().Err(err).Int("user_id", userID).Msg("Failed to read auto-saved answers")
		return prior, nil
	}
	if len(saved) > 0 {
		prior.Autosaved = saved
	}
	return prior, nil
}

// Autosave stores one answer in Redis and queues it for the database.
func (s *AttemptService) Autosave(ctx context.Context, userID int, questionID, optionID string) error {
	records, err := s.questionService.Records(ctx)
	if err != nil {
		return err
	}
	qid, err := checkAnswer(records, questionID, optionID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(model.AutosaveEvent{
		UserID:     userID,
		QuestionID: qid,
		OptionID:   optionID,
		SavedAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, config.CacheKey.QuizAutosaveKey(userID), questionID, optionID)
	pipe.RPush(ctx, config.WorkerKey.PersistAutosaveQueue, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("autosave: %w", err)
	}
	return nil
}

// RecordStart keeps the first start time reported for the user. Later
// reports are ignored.
func (s *AttemptService) RecordStart(ctx context.Context, userID int, startedAt time.Time) error {
	startedAt = startedAt.UTC()
	first, err := s.rdb.SetNX(ctx, config.CacheKey.QuizStartedAtKey(userID), startedAt.Unix(), 0).Result()
	if err != nil {
		return fmt.Errorf("record start: %w", err)
	}
	if !first {
		return nil
	}

	payload, err := json.Marshal(model.StartEvent{UserID: userID, StartedAt: startedAt})
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, config.WorkerKey.PersistStartQueue, payload).Err()
}

// Submit grades and stores the user's attempt. A second submission returns
// ErrAlreadyAttempted.
func (s *AttemptService) Submit(ctx context.Context, userID int, sub model.Submission) (*model.QuizAttempt, error) {
	records, err := s.questionService.Records(ctx)
	if err != nil {
		return nil, err
	}

	attempt, answers, stale := Grade(records, sub)
	if len(stale) > 0 {
		s.log.Warn().
			Int("user_id", userID).
			Strs("question_ids", stale).
			Msg("Dropped answers to questions changed since the session started")
	}
	attempt.UserID = userID
	attempt.StartedAt = s.startedAt(ctx, userID)

	if err := s.attemptRepo.Create(ctx, attempt, answers); err != nil {
		if errors.Is(err, repository.ErrAttemptExists) {
			return nil, ErrAlreadyAttempted
		}
		return nil, fmt.Errorf("store attempt: %w", err)
	}

	s.clearRedis(ctx, userID, false)
	s.log.Info().
		Int("user_id", userID).
		Int("answered", attempt.Answered).
		Int("correct", attempt.Correct).
		Int("total", attempt.TotalQuestions).
		Msg("Quiz submitted")
	return attempt, nil
}

// startedAt returns the cached start time, or nil so the database falls
// back to the persisted one.
func (s *AttemptService) startedAt(ctx context.Context, userID int) *time.Time {
	unix, err := s.rdb.Get(ctx, config.CacheKey.QuizStartedAtKey(userID)).Int64()
	if err != nil {
		return nil
	}
	t := time.Unix(unix, 0).UTC()
	return &t
}

// List retrieves submitted attempts with pagination.
func (s *AttemptService) List(ctx context.Context, page, perPage int) ([]model.QuizAttempt, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)

	attempts, total, err := s.attemptRepo.ListPaginated(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if attempts == nil {
		attempts = []model.QuizAttempt{}
	}
	return attempts, response.NewPagination(page, perPage, total), nil
}

// Reset deletes the user's attempt and every trace of an unfinished
// session so the quiz can be taken again.
func (s *AttemptService) Reset(ctx context.Context, userID int) error {
	deleted, err := s.attemptRepo.DeleteByUser(ctx, userID)
	if err != nil {
		return err
	}
	s.clearRedis(ctx, userID, true)
	if !deleted {
		return ErrNoAttempt
	}
	s.log.Info().Int("user_id", userID).Msg("Attempt reset")
	return nil
}

func (s *AttemptService) clearRedis(ctx context.Context, userID int, withMirror bool) {
	keys := []string{
		config.CacheKey.QuizAutosaveKey(userID),
		config.CacheKey.QuizStartedAtKey(userID),
	}
	if withMirror {
		keys = append(keys,
			config.CacheKey.QuizAnswersKey(userID),
			config.CacheKey.QuizStartKey(userID),
		)
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.log.Warn().Err(err).Int("user_id", userID).Msg("Failed to clear quiz keys")
	}
}

// Grade scores a submission against the bank. The total is the size of the
// selected subjects' pool, or the number of answers when no subject is given.
//
// Answers to questions deleted or edited since the session started cannot be
// scored. They are left out and their question IDs returned as stale, so a
// bank change never blocks a submission.
func Grade(records []model.QuestionRecord, sub model.Submission) (attempt *model.QuizAttempt, answers []model.AttemptAnswer, stale []string) {
	byID := make(map[string]model.QuestionRecord, len(records))
	for _, q := range records {
		byID[strconv.FormatInt(q.ID, 10)] = q
	}

	attempt = &model.QuizAttempt{Subjects: sub.Subjects}
	if attempt.Subjects == nil {
		attempt.Subjects = []string{}
	}
	answers = make([]model.AttemptAnswer, 0, len(sub.Answers))
	seen := make(map[int64]bool, len(sub.Answers))

	for _, a := range sub.Answers {
		q, ok := byID[a.QuestionID]
		if !ok || !slices.ContainsFunc(q.Options, func(o model.Option) bool { return o.ID == a.SelectedOption }) {
			stale = append(stale, a.QuestionID)
			continue
		}
		if seen[q.ID] {
			continue
		}
		seen[q.ID] = true

		correct := a.SelectedOption == q.CorrectOptionID
		if correct {
			attempt.Correct++
		}
		answers = append(answers, model.AttemptAnswer{
			QuestionID:       q.ID,
			SelectedOptionID: a.SelectedOption,
			IsCorrect:        correct,
		})
	}
	attempt.Answered = len(answers)

	if len(sub.Subjects) > 0 {
		for _, q := range records {
			if slices.Contains(sub.Subjects, q.Subject) {
				attempt.TotalQuestions++
			}
		}
	}
	attempt.TotalQuestions = max(attempt.TotalQuestions, attempt.Answered)
	return attempt, answers, stale
}

func checkAnswer(records []model.QuestionRecord, questionID, optionID string) (int64, error) {
	qid, err := strconv.ParseInt(questionID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	i := slices.IndexFunc(records, func(q model.QuestionRecord) bool { return q.ID == qid })
	if i < 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if !slices.ContainsFunc(records[i].Options, func(o model.Option) bool { return o.ID == optionID }) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidOption, questionID)
	}
	return qid, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
