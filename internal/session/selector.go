package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// GateState is the outcome of the pre-start availability checks.
type GateState string

const (
	GateUnknown          GateState = ""
	GateNotLive          GateState = "not-live"
	GateAlreadyAttempted GateState = "already-attempted"
	GateReady            GateState = "ready"
)

// Starter begins a session for an ordered list of subjects.
type Starter interface {
	Start(ctx context.Context, subjects []string) error
}

// Selector gates entry to the quiz and collects the subjects a student
// picks, in the order they were picked.
type Selector struct {
	userID    int
	available []string
	backend   Backend
	starter   Starter
	timeout   time.Duration
	log       zerolog.Logger

	mu       sync.Mutex
	gate     GateState
	selected []string
	started  bool
}

// NewSelector creates a Selector offering the available subjects.
// A non-positive timeout uses DefaultRequestTimeout.
func NewSelector(userID int, available []string, backend Backend, starter Starter, timeout time.Duration, log zerolog.Logger) *Selector {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Selector{
		userID:    userID,
		available: slices.Clone(available),
		backend:   backend,
		starter:   starter,
		timeout:   timeout,
		log:       log.With().Str("component", "subject_selector").Int("user_id", userID).Logger(),
	}
}

// Gate checks whether the quiz is live and whether the student already
// submitted it. Any failure of the live check closes the gate.
func (s *Selector) Gate(ctx context.Context) GateState {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	state := s.check(ctx)

	s.mu.Lock()
	s.gate = state
	s.mu.Unlock()
	return state
}

func (s *Selector) check(ctx context.Context) GateState {
	live, err := s.backend.FetchQuizLiveStatus(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Live status check failed, treating quiz as not live")
		return GateNotLive
	}
	if !live {
		return GateNotLive
	}

	attempted, err := s.backend.FetchPriorAttempt(ctx, s.userID)
	if err != nil {
		// Submission enforces the single attempt, so the check is advisory.
		s.log.Warn().Err(err).Msg("Prior attempt check failed")
		return GateReady
	}
	if attempted {
		return GateAlreadyAttempted
	}
	return GateReady
}

// Available returns the subjects on offer.
func (s *Selector) Available() []string {
	return slices.Clone(s.available)
}

// Toggle adds subject to the selection, or removes it if already selected.
func (s *Selector) Toggle(subject string) error {
	if !slices.Contains(s.available, subject) {
		return ErrUnknownSubject
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	if i := slices.Index(s.selected, subject); i >= 0 {
		s.selected = slices.Delete(s.selected, i, i+1)
	} else {
		s.selected = append(s.selected, subject)
	}
	return nil
}

// Selected returns the selection in pick order.
func (s *Selector) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.selected)
}

// CanStart reports whether Start would be attempted.
func (s *Selector) CanStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate == GateReady && !s.started && len(s.selected) > 0
}

// Start hands the selection to the starter. A failed start leaves the
// selection editable so the student can try again.
func (s *Selector) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.started:
		s.mu.Unlock()
		return ErrAlreadyStarted
	case s.gate != GateReady:
		s.mu.Unlock()
		return ErrNotReady
	case len(s.selected) == 0:
		s.mu.Unlock()
		return ErrNoSubjectSelected
	}
	s.started = true
	subjects := slices.Clone(s.selected)
	s.mu.Unlock()

	if err := s.starter.Start(ctx, subjects); err != nil {
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		return err
	}
	return nil
}
