// Package session runs a single student's timed quiz session: question
// navigation, answer tracking, the countdown and submission.
package session

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizroom-backend/internal/model"
)

// Controller owns the state of one quiz session. All methods are safe for
// concurrent use; the countdown runs on its own goroutine.
//
// View and Backend are never called while the state lock is held, so a View
// may call back into the controller.
type Controller struct {
	userID  int
	backend Backend
	view    View
	guard   AntiCheat
	bridge  *Bridge
	opts    Options
	log     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	side   sync.WaitGroup

	// persistMu orders mirror writes so an older answer map never
	// overwrites a newer one.
	persistMu sync.Mutex

	mu         sync.Mutex
	questions  []SessionQuestion
	current    int
	answers    map[string]model.StoredAnswer
	subjects   []string
	startedAt  time.Time
	restored   time.Time
	remaining  int
	starting   bool
	started    bool
	submitting bool
	finished   bool
	expired    bool
	// retryIn counts ticks down to the next forced submission attempt.
	retryIn int
	clock   *clock
}

// NewController creates a Controller for userID. guard may be nil.
func NewController(userID int, backend Backend, view View, guard AntiCheat, bridge *Bridge, opts Options, log zerolog.Logger) *Controller {
	if guard == nil {
		guard = noGuard{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		userID:  userID,
		backend: backend,
		view:    view,
		guard:   guard,
		bridge:  bridge,
		opts:    opts.withDefaults(),
		log:     log.With().Str("component", "session_controller").Int("user_id", userID).Logger(),
		ctx:     ctx,
		cancel:  cancel,
		answers: make(map[string]model.StoredAnswer),
	}
}

// Mount restores answers and the start time left by an earlier connection.
// Restored answers are applied when the session starts.
func (c *Controller) Mount(ctx context.Context) {
	answers, hasAnswers := c.bridge.LoadAnswers(ctx)
	start, hasStart := c.bridge.LoadStart(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	if hasAnswers {
		c.answers = answers
	}
	if hasStart {
		c.restored = start
	}
	c.log.Debug().
		Int("answers", len(c.answers)).
		Bool("resumed", hasStart).
		Msg("Session mounted")
}

// Start loads the question bank, builds the working set for subjects and
// starts the countdown.
func (c *Controller) Start(ctx context.Context, subjects []string) error {
	if len(subjects) == 0 {
		return ErrNoSubjectSelected
	}

	c.mu.Lock()
	if c.started || c.starting {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.starting = true
	c.mu.Unlock()

	ok := false
	defer func() {
		if !ok {
			c.mu.Lock()
			c.starting = false
			c.mu.Unlock()
		}
	}()

	loadCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	bank, err := c.backend.FetchQuestions(loadCtx)
	cancel()
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to load questions")
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	working := BuildWorkingSet(bank, subjects)
	if len(working) == 0 {
		return ErrNoQuestionsForSubjects
	}

	now := c.opts.Now()

	c.mu.Lock()
	startedAt := now
	resumed := !c.restored.IsZero()
	if resumed {
		startedAt = c.restored
	}
	c.answers = reconcile(working, c.answers)
	c.questions = working
	c.current = 0
	c.subjects = slices.Clone(subjects)
	c.startedAt = startedAt
	c.remaining = remainingSeconds(c.opts.Duration, now.Sub(startedAt))
	c.started = true
	c.starting = false
	remaining := c.remaining
	ok = true
	c.mu.Unlock()

	c.log.Info().
		Strs("subjects", subjects).
		Int("questions", len(working)).
		Int("remaining", remaining).
		Bool("resumed", resumed).
		Msg("Session started")

	if !resumed {
		if err := c.bridge.SaveStart(ctx, startedAt); err != nil {
			c.log.Warn().Err(err).Msg("Failed to persist start time")
		}
	}
	c.persistAnswers(ctx)
	c.goSide("record_start_time", func(ctx context.Context) error {
		return c.backend.RecordStartTime(ctx, c.userID, startedAt)
	})

	c.guard.SetEnabled(c.ctx, true)
	c.view.TimeLeft(remaining)

	c.mu.Lock()
	if !c.finished {
		c.clock = startClock(c.opts.TickInterval, c.Tick)
	}
	c.mu.Unlock()
	return nil
}

// Next moves to the following question. It stays put on the last one.
func (c *Controller) Next() error {
	return c.move(func(cur int) int { return cur + 1 })
}

// Prev moves to the preceding question. It stays put on the first one.
func (c *Controller) Prev() error {
	return c.move(func(cur int) int { return cur - 1 })
}

// Goto jumps to question i, clamped to the working set.
func (c *Controller) Goto(i int) error {
	return c.move(func(int) int { return i })
}

func (c *Controller) move(target func(cur int) int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editableLocked(); err != nil {
		return err
	}
	c.moveLocked(target(c.current))
	return nil
}

// SelectOption records optionID as the answer to the current question.
func (c *Controller) SelectOption(ctx context.Context, optionID string) error {
	c.mu.Lock()
	if err := c.mutableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	q := &c.questions[c.current]
	opt, ok := q.Option(optionID)
	if !ok {
		c.mu.Unlock()
		return ErrUnknownOption
	}
	c.answers[q.ID] = model.StoredAnswer{
		QuestionID:       q.ID,
		SelectedOptionID: opt.ID,
		AnswerText:       opt.Text,
	}
	q.UserAnswer = opt.Text
	if q.Status.Marked() {
		q.Status = StatusAnsweredMarked
	} else {
		q.Status = StatusAnswered
	}
	questionID := q.ID
	c.mu.Unlock()

	c.persistAnswers(ctx)
	c.goSide("autosave", func(ctx context.Context) error {
		return c.backend.AutoSaveAnswer(ctx, c.userID, questionID, opt.ID)
	})
	return nil
}

// Clear removes the answer of the current question.
func (c *Controller) Clear(ctx context.Context) error {
	c.mu.Lock()
	if err := c.mutableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	q := &c.questions[c.current]
	delete(c.answers, q.ID)
	q.UserAnswer = ""
	q.Status = StatusNotAnswered
	c.mu.Unlock()

	c.persistAnswers(ctx)
	return nil
}

// ToggleReview flags or unflags the current question for review.
func (c *Controller) ToggleReview() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editableLocked(); err != nil {
		return err
	}
	q := &c.questions[c.current]
	_, answered := c.answers[q.ID]
	switch {
	case q.Status.Marked() && answered:
		q.Status = StatusAnswered
	case q.Status.Marked():
		q.Status = StatusNotAnswered
	case answered:
		q.Status = StatusAnsweredMarked
	default:
		q.Status = StatusMarkedReview
	}
	return nil
}

// SaveAndNext requires an answer on the current question, then moves on.
// On the last question it asks the student to confirm submission instead.
func (c *Controller) SaveAndNext(ctx context.Context) error {
	c.mu.Lock()
	if err := c.editableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	q := c.questions[c.current]
	if _, ok := c.answers[q.ID]; !ok {
		c.mu.Unlock()
		c.view.Toast(model.Notice{
			Level:   model.NoticeWarning,
			Code:    "no_selection",
			Message: "Please select an answer before continuing.",
		})
		return ErrNoSelection
	}

	last := c.current == len(c.questions)-1
	var unanswered int
	if last {
		c.questions[c.current].Status = q.Status.settle(true)
		unanswered = c.unansweredLocked()
	} else {
		c.moveLocked(c.current + 1)
	}
	c.mu.Unlock()

	c.persistAnswers(ctx)
	if last {
		c.view.PromptSubmit(unanswered)
	}
	return nil
}

// Submit sends the answers. Without confirmation and with unanswered
// questions left it only prompts the student and returns nil. Once time is
// up it submits without prompting, so a failed forced submission can be
// retried by hand.
func (c *Controller) Submit(ctx context.Context, confirmed bool) error {
	c.mu.Lock()
	if err := c.activeLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmitInProgress
	}
	unanswered := c.unansweredLocked()
	if !confirmed && !c.expired && unanswered > 0 {
		c.mu.Unlock()
		c.view.PromptSubmit(unanswered)
		return nil
	}
	c.submitting = true
	sub := c.submissionLocked()
	c.mu.Unlock()

	return c.submit(ctx, sub)
}

// Tick advances the countdown by one step. When it reaches zero the session
// is submitted regardless of unanswered questions, and answers are frozen.
// A failed forced submission is retried every SubmitRetryTicks ticks until
// one succeeds.
func (c *Controller) Tick() {
	c.mu.Lock()
	if !c.started || c.finished {
		c.mu.Unlock()
		return
	}
	if c.remaining > 0 {
		c.remaining--
	}
	remaining := c.remaining
	wasExpired := c.expired
	fire := false
	switch {
	case remaining == 0 && !c.expired:
		c.expired = true
		c.retryIn = c.opts.SubmitRetryTicks
		fire = true
	case c.expired && !c.submitting:
		c.retryIn--
		if c.retryIn <= 0 {
			c.retryIn = c.opts.SubmitRetryTicks
			fire = true
		}
	}
	c.mu.Unlock()

	if !wasExpired {
		c.view.TimeLeft(remaining)
	}
	if fire && !wasExpired {
		c.log.Info().Msg("Time is up, submitting")
		c.view.TimeUp()
	}
	if fire {
		c.forceSubmit()
	}
}

func (c *Controller) forceSubmit() {
	c.mu.Lock()
	if c.finished || c.submitting {
		c.mu.Unlock()
		return
	}
	c.submitting = true
	sub := c.submissionLocked()
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(c.ctx, c.opts.RequestTimeout)
	defer cancel()
	if err := c.submit(ctx, sub); err != nil {
		c.log.Warn().Int("retry_in_ticks", c.opts.SubmitRetryTicks).Msg("Forced submission will be retried")
	}
}

func (c *Controller) submit(ctx context.Context, sub model.Submission) error {
	msg, err := c.backend.SubmitQuiz(ctx, c.userID, sub)
	if err != nil {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()

		c.log.Error().Err(err).Int("answers", len(sub.Answers)).Msg("Submission failed")
		c.view.Toast(model.Notice{
			Level:   model.NoticeError,
			Code:    "submit_failed",
			Message: "Failed to submit your answers. Please try again.",
		})
		return fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	c.mu.Lock()
	c.finished = true
	c.submitting = false
	clk := c.clock
	c.mu.Unlock()

	clk.Stop()
	if err := c.bridge.Clear(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Failed to clear persisted state")
	}
	c.guard.EndSession(EndReasonSubmitted)

	c.log.Info().Int("answers", len(sub.Answers)).Msg("Session submitted")
	if msg != "" {
		c.view.Toast(model.Notice{Level: model.NoticeSuccess, Code: "submitted", Message: msg})
	}
	c.view.Redirect(c.opts.ResultsRoute)
	return nil
}

// Results fetches the graded attempt. It works whether the attempt was
// submitted on this connection or an earlier one.
func (c *Controller) Results(ctx context.Context) (*model.QuizResults, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()
	res, err := c.backend.FetchResults(ctx, c.userID)
	if err != nil {
		return nil, fmt.Errorf("fetch results: %w", err)
	}
	return res, nil
}

// Close stops the countdown and the guard without submitting and waits for
// background requests to finish. A tick already running, including a forced
// submission, completes before the session context is cancelled.
func (c *Controller) Close() {
	c.mu.Lock()
	clk := c.clock
	c.mu.Unlock()

	clk.Stop()
	clk.Wait()

	c.mu.Lock()
	active := c.started && !c.finished
	c.mu.Unlock()
	if active {
		c.guard.SetEnabled(context.Background(), false)
	}
	c.cancel()
	c.side.Wait()
}

// Snapshot is a read-only copy of the session state for rendering.
type Snapshot struct {
	Started    bool              `json:"started"`
	Submitting bool              `json:"submitting"`
	Finished   bool              `json:"finished"`
	Subjects   []string          `json:"subjects"`
	Current    int               `json:"current"`
	Remaining  int               `json:"remaining"`
	Questions  []SessionQuestion `json:"questions"`
	Answered   int               `json:"answered"`
	Unanswered int               `json:"unanswered"`
	Counts     map[Status]int    `json:"counts"`
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	for _, q := range c.questions {
		counts[q.Status]++
	}
	answered := 0
	for _, q := range c.questions {
		if _, ok := c.answers[q.ID]; ok {
			answered++
		}
	}

	return Snapshot{
		Started:    c.started,
		Submitting: c.submitting,
		Finished:   c.finished,
		Subjects:   slices.Clone(c.subjects),
		Current:    c.current,
		Remaining:  c.remaining,
		Questions:  slices.Clone(c.questions),
		Answered:   answered,
		Unanswered: len(c.questions) - answered,
		Counts:     counts,
	}
}

// Answers returns a copy of the answer map.
func (c *Controller) Answers() map[string]model.StoredAnswer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.answers)
}

func (c *Controller) activeLocked() error {
	switch {
	case !c.started:
		return ErrNotStarted
	case c.finished:
		return ErrFinished
	}
	return nil
}

// editableLocked allows navigation and review flags until time runs out.
func (c *Controller) editableLocked() error {
	if err := c.activeLocked(); err != nil {
		return err
	}
	if c.expired {
		return ErrTimeUp
	}
	return nil
}

// mutableLocked additionally forbids answer changes while a submission is
// in flight.
func (c *Controller) mutableLocked() error {
	if err := c.editableLocked(); err != nil {
		return err
	}
	if c.submitting {
		return ErrSubmitInProgress
	}
	return nil
}

func (c *Controller) moveLocked(to int) {
	to = max(0, min(to, len(c.questions)-1))
	if to == c.current {
		return
	}
	cur := &c.questions[c.current]
	_, answered := c.answers[cur.ID]
	cur.Status = cur.Status.settle(answered)

	c.current = to
	if c.opts.VisitPolicy == MarkOnVisit && c.questions[to].Status == StatusNotVisited {
		c.questions[to].Status = StatusNotAnswered
	}
}

func (c *Controller) unansweredLocked() int {
	n := 0
	for _, q := range c.questions {
		if _, ok := c.answers[q.ID]; !ok {
			n++
		}
	}
	return n
}

func (c *Controller) submissionLocked() model.Submission {
	answers := make([]model.SubmittedAnswer, 0, len(c.answers))
	for _, q := range c.questions {
		if a, ok := c.answers[q.ID]; ok {
			answers = append(answers, model.SubmittedAnswer{
				QuestionID:     a.QuestionID,
				SelectedOption: a.SelectedOptionID,
			})
		}
	}
	return model.Submission{Subjects: slices.Clone(c.subjects), Answers: answers}
}

func (c *Controller) persistAnswers(ctx context.Context) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	answers := maps.Clone(c.answers)
	c.mu.Unlock()

	if err := c.bridge.SaveAnswers(ctx, answers); err != nil {
		c.log.Warn().Err(err).Msg("Failed to persist answers")
	}
}

// goSide runs a best-effort backend call. Failures are logged only.
func (c *Controller) goSide(op string, fn func(ctx context.Context) error) {
	c.side.Add(1)
	go func() {
		defer c.side.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.RequestTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			c.log.Warn().Err(err).Str("op", op).Msg("Background request failed")
		}
	}()
}

func remainingSeconds(d, elapsed time.Duration) int {
	left := d - elapsed
	if left <= 0 {
		return 0
	}
	return int(left / time.Second)
}

type noGuard struct{}

func (noGuard) SetEnabled(context.Context, bool) {}
func (noGuard) EndSession(string)                {}
