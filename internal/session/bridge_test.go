package session

import (
	"context"
	"errors"
	"maps"
	"testing"
	"time"

	"github.com/stemsi/quizroom-backend/internal/config"
	"github.com/stemsi/quizroom-backend/internal/model"
	"github.com/stemsi/quizroom-backend/internal/storage"
)

func TestBridgeAnswersRoundTrip(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	answers := map[string]model.StoredAnswer{
		"1":  {QuestionID: "1", SelectedOptionID: "2", AnswerText: "Paris"},
		"17": {QuestionID: "17", SelectedOptionID: "b", AnswerText: "x² + 1"},
	}

	if err := newTestBridge(store).SaveAnswers(ctx, answers); err != nil {
		t.Fatal(err)
	}

	got, ok := newTestBridge(store).LoadAnswers(ctx)
	if !ok {
		t.Fatal("nothing loaded")
	}
	if !maps.Equal(got, answers) {
		t.Fatalf("loaded %v, want %v", got, answers)
	}
}

func TestBridgeStartRoundTrip(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 30, 15, 500, time.FixedZone("WIB", 7*3600))

	if err := newTestBridge(store).SaveStart(ctx, start); err != nil {
		t.Fatal(err)
	}
	got, ok := newTestBridge(store).LoadStart(ctx)
	if !ok || !got.Equal(start) {
		t.Fatalf("LoadStart = %v, %v", got, ok)
	}
}

func TestBridgeDiscardsUnreadableState(t *testing.T) {
	key := config.CacheKey.QuizAnswersKey(testUserID)

	tests := []struct {
		name string
		raw  string
	}{
		{"other version", `{"v":0,"data":{"1":{"question_id":"1","selected_option_id":"2","answer_text":"Paris"}}}`},
		{"unversioned blob", `{"1":{"questionId":"1","selectedOptionId":"2"}}`},
		{"not json", `not json`},
		{"wrong data shape", `{"v":1,"data":[1,2,3]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			ctx := context.Background()
			_ = store.Set(ctx, key, []byte(tt.raw))

			if got, ok := newTestBridge(store).LoadAnswers(ctx); ok {
				t.Fatalf("loaded %v from unreadable state", got)
			}
			if _, err := store.Get(ctx, key); !errors.Is(err, storage.ErrNotFound) {
				t.Fatalf("stale key kept: %v", err)
			}
		})
	}
}

func TestBridgeClear(t *testing.T) {
	store := storage.NewMemoryStore()
	b := newTestBridge(store)
	ctx := context.Background()

	_ = b.SaveAnswers(ctx, map[string]model.StoredAnswer{"1": {QuestionID: "1"}})
	_ = b.SaveStart(ctx, time.Now())
	if err := b.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	if _, ok := b.LoadAnswers(ctx); ok {
		t.Error("answers survived Clear")
	}
	if _, ok := b.LoadStart(ctx); ok {
		t.Error("start survived Clear")
	}
}
