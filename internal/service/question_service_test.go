package service

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizroom-backend/internal/config"
	"github.com/stemsi/quizroom-backend/internal/model"
	"github.com/stemsi/quizroom-backend/internal/response"
)

func testBank() []model.QuestionRecord {
	opts := []model.Option{{ID: "a", Text: "London"}, {ID: "b", Text: "Paris"}, {ID: "c", Text: "Rome"}}
	return []model.QuestionRecord{
		{ID: 1, Text: "q1", Subject: "math", Options: opts, CorrectOptionID: "a"},
		{ID: 2, Text: "q2", Subject: "math", Options: opts, CorrectOptionID: "b"},
		{ID: 3, Text: "q3", Subject: "science", Options: opts, CorrectOptionID: "c"},
		{ID: 4, Text: "q4", Subject: "history", Options: opts, CorrectOptionID: "a"},
	}
}

// newCachedQuestionService returns a service whose bank is already cached,
// so no database is needed.
func newCachedQuestionService(t *testing.T) (*QuestionService, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	payload, err := json.Marshal(testBank())
	if err != nil {
		t.Fatal(err)
	}
	mr.Set(config.CacheKey.QuestionBankKey(), string(payload))

	return NewQuestionService(nil, rdb, time.Minute, zerolog.Nop()), rdb, mr
}

func TestQuestionServiceServesFromCache(t *testing.T) {
	s, _, _ := newCachedQuestionService(t)
	ctx := context.Background()

	records, err := s.Records(ctx)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 4 || records[0].CorrectOptionID != "a" {
		t.Fatalf("records = %+v", records)
	}

	bank, err := s.Bank(ctx)
	if err != nil {
		t.Fatalf("Bank: %v", err)
	}
	ids := make([]string, 0, len(bank))
	for _, q := range bank {
		ids = append(ids, q.ID)
		if len(q.Options) != 3 {
			t.Errorf("question %s has %d options", q.ID, len(q.Options))
		}
	}
	slices.Sort(ids)
	if !slices.Equal(ids, []string{"1", "2", "3", "4"}) {
		t.Fatalf("bank ids = %v", ids)
	}
}

func TestQuestionServiceAnswerKeyFallsBackToBank(t *testing.T) {
	s, _, mr := newCachedQuestionService(t)
	ctx := context.Background()

	key, err := s.AnswerKey(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if key["2"] != "b" || key["3"] != "c" || len(key) != 4 {
		t.Fatalf("answer key = %v", key)
	}

	mr.HSet(config.CacheKey.AnswerKeyKey(), "1", "z")
	key, err = s.AnswerKey(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if key["1"] != "z" {
		t.Fatalf("cached answer key not used: %v", key)
	}
}

func TestQuestionServiceSubjects(t *testing.T) {
	s, _, _ := newCachedQuestionService(t)

	subjects, err := s.Subjects(context.Background(), []string{"math", "english", "science"})
	if err != nil {
		t.Fatal(err)
	}
	want := []model.Subject{{Key: "math", QuestionCount: 2}, {Key: "english"}, {Key: "science", QuestionCount: 1}}
	if !slices.Equal(subjects, want) {
		t.Fatalf("subjects = %+v, want %+v", subjects, want)
	}
}

func TestQuestionServiceInvalidate(t *testing.T) {
	s, _, mr := newCachedQuestionService(t)
	mr.HSet(config.CacheKey.AnswerKeyKey(), "1", "a")

	s.Invalidate(context.Background())

	if mr.Exists(config.CacheKey.QuestionBankKey()) || mr.Exists(config.CacheKey.AnswerKeyKey()) {
		t.Fatal("cache keys survived invalidation")
	}
}

func TestQuestionFromRequest(t *testing.T) {
	valid := func() *model.QuestionRequest {
		return &model.QuestionRequest{
			Text:            " What is 2+2? ",
			Subject:         " Math ",
			Options:         []model.OptionInput{{ID: "a", Text: "3"}, {ID: "b", Text: "4"}},
			CorrectOptionID: "b",
		}
	}

	q, err := questionFromRequest(valid())
	if err != nil {
		t.Fatalf("valid request: %v", err)
	}
	if q.Text != "What is 2+2?" || q.Subject != "math" || len(q.Options) != 2 {
		t.Fatalf("normalised question = %+v", q)
	}

	tests := []struct {
		name   string
		mutate func(r *model.QuestionRequest)
	}{
		{"blank text", func(r *model.QuestionRequest) { r.Text = "  " }},
		{"single option", func(r *model.QuestionRequest) { r.Options = r.Options[:1] }},
		{"duplicate option", func(r *model.QuestionRequest) { r.Options[1].ID = "a"; r.CorrectOptionID = "a" }},
		{"correct not an option", func(r *model.QuestionRequest) { r.CorrectOptionID = "d" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			if _, err := questionFromRequest(r); !errors.Is(err, ErrInvalidQuestion) {
				t.Fatalf("error = %v, want ErrInvalidQuestion", err)
			}
		})
	}
}

func TestPagination(t *testing.T) {
	page, perPage := normalizePage(0, 500)
	if page != 1 || perPage != 100 {
		t.Fatalf("normalizePage = %d, %d", page, perPage)
	}
	p := response.NewPagination(2, 10, 31)
	if p.TotalPages != 4 {
		t.Fatalf("total pages = %d, want 4", p.TotalPages)
	}
}
