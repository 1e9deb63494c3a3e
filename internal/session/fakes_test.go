package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizroom-backend/internal/config"
	"github.com/stemsi/quizroom-backend/internal/model"
	"github.com/stemsi/quizroom-backend/internal/storage"
)

const testUserID = 7

type fakeBackend struct {
	mu sync.Mutex

	bank      []model.Question
	fetchErr  error
	live      bool
	liveErr   error
	attempted bool
	priorErr  error
	submitErr error
	// release, when set, blocks SubmitQuiz until it is closed.
	release chan struct{}

	submits   []model.Submission
	autosaves []string
	starts    []time.Time
}

func (b *fakeBackend) FetchQuestions(ctx context.Context) ([]model.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fetchErr != nil {
		return nil, b.fetchErr
	}
	return append([]model.Question(nil), b.bank...), nil
}

func (b *fakeBackend) FetchPriorAttempt(ctx context.Context, userID int) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempted, b.priorErr
}

func (b *fakeBackend) FetchQuizLiveStatus(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live, b.liveErr
}

func (b *fakeBackend) AutoSaveAnswer(ctx context.Context, userID int, questionID, optionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.autosaves = append(b.autosaves, questionID+":"+optionID)
	return nil
}

func (b *fakeBackend) RecordStartTime(ctx context.Context, userID int, startedAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.starts = append(b.starts, startedAt)
	return nil
}

func (b *fakeBackend) SubmitQuiz(ctx context.Context, userID int, sub model.Submission) (string, error) {
	b.mu.Lock()
	b.submits = append(b.submits, sub)
	release, err := b.release, b.submitErr
	b.mu.Unlock()

	if release != nil {
		<-release
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return "Quiz submitted successfully", nil
}

var errNoAttempt = errors.New("no submitted attempt")

func (b *fakeBackend) FetchResults(ctx context.Context, userID int) (*model.QuizResults, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.submits) == 0 {
		return nil, errNoAttempt
	}
	last := b.submits[len(b.submits)-1]
	return &model.QuizResults{Summary: model.ResultSummary{Answered: len(last.Answers)}}, nil
}

func (b *fakeBackend) submitCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.submits)
}

type fakeView struct {
	mu        sync.Mutex
	events    []string
	toasts    []model.Notice
	prompts   []int
	redirects []string
	timeLeft  []int
}

func (v *fakeView) Toast(n model.Notice) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.toasts = append(v.toasts, n)
	v.events = append(v.events, "toast:"+n.Code)
}

func (v *fakeView) PromptSubmit(unanswered int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.prompts = append(v.prompts, unanswered)
	v.events = append(v.events, fmt.Sprintf("prompt:%d", unanswered))
}

func (v *fakeView) TimeLeft(seconds int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.timeLeft = append(v.timeLeft, seconds)
}

func (v *fakeView) TimeUp() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, "time_up")
}

func (v *fakeView) Redirect(route string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.redirects = append(v.redirects, route)
	v.events = append(v.events, "redirect:"+route)
}

func (v *fakeView) eventLog() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.events...)
}

type fakeGuard struct {
	mu      sync.Mutex
	enabled bool
	enables int
	ended   []string
}

func (g *fakeGuard) SetEnabled(_ context.Context, enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled = enabled
	if enabled {
		g.enables++
	}
}

func (g *fakeGuard) EndSession(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ended = append(g.ended, reason)
	g.enabled = false
}

type harness struct {
	backend *fakeBackend
	view    *fakeView
	guard   *fakeGuard
	store   *storage.MemoryStore
	bridge  *Bridge
	ctrl    *Controller
	now     time.Time
}

// newHarness builds a controller whose clock never fires on its own;
// tests drive the countdown with Tick.
func newHarness(bank []model.Question, opts Options) *harness {
	h := &harness{
		backend: &fakeBackend{bank: bank, live: true},
		view:    &fakeView{},
		guard:   &fakeGuard{},
		store:   storage.NewMemoryStore(),
		now:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	h.bridge = newTestBridge(h.store)
	if opts.TickInterval == 0 {
		opts.TickInterval = time.Hour
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return h.now }
	}
	h.ctrl = NewController(testUserID, h.backend, h.view, h.guard, h.bridge, opts, zerolog.Nop())
	return h
}

func newTestBridge(store Store) *Bridge {
	return NewBridge(store,
		config.CacheKey.QuizAnswersKey(testUserID),
		config.CacheKey.QuizStartKey(testUserID),
		zerolog.Nop())
}

func question(id, subject string) model.Question {
	return model.Question{
		ID:      id,
		Text:    "Question " + id,
		Subject: subject,
		Options: []model.Option{
			{ID: "1", Text: "London"},
			{ID: "2", Text: "Paris"},
			{ID: "3", Text: "Rome"},
		},
	}
}

// scenarioBank holds 3 math, 2 science and 4 history questions, interleaved.
func scenarioBank() []model.Question {
	return []model.Question{
		question("h1", "history"),
		question("1", "math"),
		question("s1", "science"),
		question("h2", "history"),
		question("2", "math"),
		question("h3", "history"),
		question("s2", "science"),
		question("3", "math"),
		question("h4", "history"),
	}
}
