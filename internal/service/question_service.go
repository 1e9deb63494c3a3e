package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizroom-backend/internal/config"
	"github.com/stemsi/quizroom-backend/internal/model"
	"github.com/stemsi/quizroom-backend/internal/repository"
	"github.com/stemsi/quizroom-backend/internal/response"
	"golang.org/x/sync/singleflight"
)

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrInvalidQuestion  = errors.New("invalid question")
)

// QuestionService serves the question bank from a Redis cache backed by
// PostgreSQL and manages the bank for administrators.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	ttl          time.Duration
	sf           singleflight.Group
	log          zerolog.Logger
}

// NewQuestionService creates a new QuestionService. A zero ttl caches forever.
func NewQuestionService(questionRepo *repository.QuestionRepository, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		questionRepo: questionRepo,
		rdb:          rdb,
		ttl:          ttl,
		log:          log.With().Str("component", "question_service").Logger(),
	}
}

// Records returns the full bank including correct options. Concurrent misses
// share a single database load.
func (s *QuestionService) Records(ctx context.Context) ([]model.QuestionRecord, error) {
	if records, ok := s.cached(ctx); ok {
		return records, nil
	}

	v, err, _ := s.sf.Do("bank", func() (any, error) {
		if records, ok := s.cached(ctx); ok {
			return records, nil
		}
		return s.WarmCache(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.QuestionRecord), nil
}

func (s *QuestionService) cached(ctx context.Context) ([]model.QuestionRecord, bool) {
	data, err := s.rdb.Get(ctx, config.CacheKey.QuestionBankKey()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Msg("Question cache read failed")
		}
		return nil, false
	}

	var records []model.QuestionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.log.Warn().Err(err).Msg("Corrupt question cache, reloading")
		return nil, false
	}
	return records, true
}

// WarmCache loads the bank from PostgreSQL into Redis, together with the
// answer key used for grading. A cache write failure is logged and the
// loaded bank is still returned.
func (s *QuestionService) WarmCache(ctx context.Context) ([]model.QuestionRecord, error) {
	records, err := s.questionRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if records == nil {
		records = []model.QuestionRecord{}
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshal bank: %w", err)
	}

	answerKey := make(map[string]any, len(records))
	for _, q := range records {
		answerKey[strconv.FormatInt(q.ID, 10)] = q.CorrectOptionID
	}

	ttl := s.ttlWithJitter()
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, config.CacheKey.QuestionBankKey(), payload, ttl)
	pipe.Del(ctx, config.CacheKey.AnswerKeyKey())
	if len(answerKey) > 0 {
		pipe.HSet(ctx, config.CacheKey.AnswerKeyKey(), answerKey)
		if ttl > 0 {
			pipe.Expire(ctx, config.CacheKey.AnswerKeyKey(), ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache question bank")
	}

	s.log.Debug().Int("questions", len(records)).Msg("Question cache warmed")
	return records, nil
}

// Invalidate drops the cached bank. The next read reloads it.
func (s *QuestionService) Invalidate(ctx context.Context) {
	if err := s.rdb.Del(ctx, config.CacheKey.QuestionBankKey(), config.CacheKey.AnswerKeyKey()).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate question cache")
	}
}

// Bank returns the student-facing bank in a fresh random order.
func (s *QuestionService) Bank(ctx context.Context) ([]model.Question, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	questions := toPublic(records)
	rand.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
	return questions, nil
}

// AnswerKey returns correct option IDs keyed by question ID.
func (s *QuestionService) AnswerKey(ctx context.Context) (map[string]string, error) {
	key, err := s.rdb.HGetAll(ctx, config.CacheKey.AnswerKeyKey()).Result()
	if err == nil && len(key) > 0 {
		return key, nil
	}

	records, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	key = make(map[string]string, len(records))
	for _, q := range records {
		key[strconv.FormatInt(q.ID, 10)] = q.CorrectOptionID
	}
	return key, nil
}

// Subjects returns the given subjects with the number of questions each has,
// in the given order.
func (s *QuestionService) Subjects(ctx context.Context, keys []string) ([]model.Subject, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, q := range records {
		counts[q.Subject]++
	}

	subjects := make([]model.Subject, 0, len(keys))
	for _, k := range keys {
		subjects = append(subjects, model.Subject{Key: k, QuestionCount: counts[k]})
	}
	return subjects, nil
}

// List retrieves questions with pagination, optionally for one subject.
func (s *QuestionService) List(ctx context.Context, subject string, page, perPage int) ([]model.QuestionRecord, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)

	questions, total, err := s.questionRepo.ListBySubject(ctx, subject, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if questions == nil {
		questions = []model.QuestionRecord{}
	}
	return questions, response.NewPagination(page, perPage, total), nil
}

// Get retrieves one question.
func (s *QuestionService) Get(ctx context.Context, id int64) (*model.QuestionRecord, error) {
	q, err := s.questionRepo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQuestionNotFound
	}
	return q, err
}

// Create validates and stores a new question.
func (s *QuestionService) Create(ctx context.Context, req *model.QuestionRequest) (*model.QuestionRecord, error) {
	q, err := questionFromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.questionRepo.Create(ctx, &q); err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	return &q, nil
}

// Update replaces a question.
func (s *QuestionService) Update(ctx context.Context, id int64, req *model.QuestionRequest) (*model.QuestionRecord, error) {
	q, err := questionFromRequest(req)
	if err != nil {
		return nil, err
	}
	q.ID = id
	if err := s.questionRepo.Update(ctx, &q); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	s.Invalidate(ctx)
	return &q, nil
}

// Delete removes a question.
func (s *QuestionService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.questionRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrQuestionNotFound
	}
	s.Invalidate(ctx)
	return nil
}

// Import validates every request first and then stores them all.
func (s *QuestionService) Import(ctx context.Context, reqs []model.QuestionRequest) (int64, error) {
	questions := make([]model.QuestionRecord, 0, len(reqs))
	for i := range reqs {
		q, err := questionFromRequest(&reqs[i])
		if err != nil {
			return 0, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, q)
	}

	n, err := s.questionRepo.BulkCreate(ctx, questions)
	if err != nil {
		return 0, err
	}
	s.Invalidate(ctx)
	return n, nil
}

func questionFromRequest(req *model.QuestionRequest) (model.QuestionRecord, error) {
	q := model.QuestionRecord{
		Text:            strings.TrimSpace(req.Text),
		Subject:         strings.ToLower(strings.TrimSpace(req.Subject)),
		CorrectOptionID: req.CorrectOptionID,
		Options:         make([]model.Option, 0, len(req.Options)),
	}
	if q.Text == "" || q.Subject == "" {
		return q, fmt.Errorf("%w: text and subject are required", ErrInvalidQuestion)
	}
	if len(req.Options) < 2 {
		return q, fmt.Errorf("%w: at least two options are required", ErrInvalidQuestion)
	}

	ids := make([]string, 0, len(req.Options))
	for _, o := range req.Options {
		if slices.Contains(ids, o.ID) {
			return q, fmt.Errorf("%w: duplicate option id %q", ErrInvalidQuestion, o.ID)
		}
		ids = append(ids, o.ID)
		q.Options = append(q.Options, model.Option{ID: o.ID, Text: o.Text})
	}
	if !slices.Contains(ids, req.CorrectOptionID) {
		return q, fmt.Errorf("%w: correct option %q is not one of the options", ErrInvalidQuestion, req.CorrectOptionID)
	}
	return q, nil
}

func toPublic(records []model.QuestionRecord) []model.Question {
	out := make([]model.Question, len(records))
	for i, r := range records {
		out[i] = model.Question{
			ID:      strconv.FormatInt(r.ID, 10),
			Text:    r.Text,
			Options: slices.Clone(r.Options),
			Subject: r.Subject,
		}
	}
	return out
}

func (s *QuestionService) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	return s.ttl + time.Duration(rand.Int63n(int64(s.ttl/10+1)))
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}
