package session

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/rs/zerolog"
)

type recordingStarter struct {
	calls [][]string
	err   error
}

func (s *recordingStarter) Start(_ context.Context, subjects []string) error {
	s.calls = append(s.calls, subjects)
	return s.err
}

var testSubjects = []string{"math", "science", "history"}

func newTestSelector(b *fakeBackend, st Starter) *Selector {
	return NewSelector(testUserID, testSubjects, b, st, 0, zerolog.Nop())
}

func TestSelectorGate(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeBackend
		want    GateState
	}{
		{"live", &fakeBackend{live: true}, GateReady},
		{"not live", &fakeBackend{live: false}, GateNotLive},
		{"live check fails closed", &fakeBackend{live: true, liveErr: errors.New("timeout")}, GateNotLive},
		{"already attempted", &fakeBackend{live: true, attempted: true}, GateAlreadyAttempted},
		{"prior check failure is advisory", &fakeBackend{live: true, priorErr: errors.New("boom")}, GateReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSelector(tt.backend, &recordingStarter{})
			if got := s.Gate(context.Background()); got != tt.want {
				t.Fatalf("Gate = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectorBlocksStartUnlessReady(t *testing.T) {
	st := &recordingStarter{}
	s := newTestSelector(&fakeBackend{live: false}, st)
	ctx := context.Background()

	s.Gate(ctx)
	_ = s.Toggle("math")
	if s.CanStart() {
		t.Fatal("CanStart true while not live")
	}
	if err := s.Start(ctx); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Start error = %v, want ErrNotReady", err)
	}
	if len(st.calls) != 0 {
		t.Fatal("starter called")
	}
}

func TestSelectorToggleKeepsPickOrder(t *testing.T) {
	s := newTestSelector(&fakeBackend{live: true}, &recordingStarter{})

	for _, subj := range []string{"science", "math", "history", "math"} {
		if err := s.Toggle(subj); err != nil {
			t.Fatalf("Toggle(%s): %v", subj, err)
		}
	}
	if got := s.Selected(); !slices.Equal(got, []string{"science", "history"}) {
		t.Fatalf("Selected = %v", got)
	}
	if err := s.Toggle("art"); !errors.Is(err, ErrUnknownSubject) {
		t.Fatalf("Toggle(art) error = %v", err)
	}
}

func TestSelectorStart(t *testing.T) {
	st := &recordingStarter{}
	s := newTestSelector(&fakeBackend{live: true}, st)
	ctx := context.Background()
	s.Gate(ctx)

	if s.CanStart() {
		t.Fatal("CanStart true with empty selection")
	}
	if err := s.Start(ctx); !errors.Is(err, ErrNoSubjectSelected) {
		t.Fatalf("Start error = %v", err)
	}

	_ = s.Toggle("history")
	_ = s.Toggle("math")
	if !s.CanStart() {
		t.Fatal("CanStart false with a selection")
	}
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start error = %v", err)
	}
	if err := s.Toggle("science"); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("Toggle after start error = %v", err)
	}

	if len(st.calls) != 1 || !slices.Equal(st.calls[0], []string{"history", "math"}) {
		t.Fatalf("starter calls = %v", st.calls)
	}
}

func TestSelectorStartFailureAllowsRetry(t *testing.T) {
	st := &recordingStarter{err: ErrNoQuestionsForSubjects}
	s := newTestSelector(&fakeBackend{live: true}, st)
	ctx := context.Background()
	s.Gate(ctx)
	_ = s.Toggle("history")

	if err := s.Start(ctx); !errors.Is(err, ErrNoQuestionsForSubjects) {
		t.Fatalf("Start error = %v", err)
	}
	if !s.CanStart() {
		t.Fatal("selector locked after failed start")
	}

	st.err = nil
	_ = s.Toggle("math")
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if got := st.calls[1]; !slices.Equal(got, []string{"history", "math"}) {
		t.Fatalf("retry subjects = %v", got)
	}
}

func TestSelectorWithController(t *testing.T) {
	h := newHarness(scenarioBank(), Options{})
	s := NewSelector(testUserID, testSubjects, h.backend, h.ctrl, 0, zerolog.Nop())
	ctx := context.Background()

	if s.Gate(ctx) != GateReady {
		t.Fatal("gate not ready")
	}
	_ = s.Toggle("science")
	_ = s.Toggle("math")
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer h.ctrl.Close()

	snap := h.ctrl.Snapshot()
	if !slices.Equal(snap.Subjects, []string{"science", "math"}) || len(snap.Questions) != 5 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Questions[0].Subject != "science" {
		t.Fatalf("first subject = %s", snap.Questions[0].Subject)
	}
}
