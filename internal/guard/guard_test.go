package guard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizroom-backend/internal/model"
)

type fakeDoc struct {
	mu       sync.Mutex
	handlers map[EventKind]Handler
	styles   map[string]string
	size     Size
	hasSize  bool
}

func newFakeDoc() *fakeDoc {
	return &fakeDoc{handlers: map[EventKind]Handler{}, styles: map[string]string{}}
}

func (d *fakeDoc) SetHandler(kind EventKind, h Handler) Handler {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev := d.handlers[kind]
	if h == nil {
		delete(d.handlers, kind)
	} else {
		d.handlers[kind] = h
	}
	return prev
}

func (d *fakeDoc) SetStyle(property, value string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev := d.styles[property]
	d.styles[property] = value
	return prev
}

func (d *fakeDoc) WindowSize() (Size, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size, d.hasSize
}

func (d *fakeDoc) setSize(s Size) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.size, d.hasSize = s, true
}

func (d *fakeDoc) dispatch(ev Event) bool {
	d.mu.Lock()
	h := d.handlers[ev.Kind]
	d.mu.Unlock()
	if h == nil {
		return false
	}
	return h(ev)
}

type fakeFullscreen struct {
	mu         sync.Mutex
	name       string
	supported  bool
	requestErr error
	requests   int
	exits      int
	active     bool
}

func (f *fakeFullscreen) Name() string    { return f.name }
func (f *fakeFullscreen) Supported() bool { return f.supported }

func (f *fakeFullscreen) Request(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	if f.requestErr != nil {
		return f.requestErr
	}
	f.active = true
	return nil
}

func (f *fakeFullscreen) Exit(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exits++
	f.active = false
	return nil
}

func (f *fakeFullscreen) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeFullscreen) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

// leave simulates the student pressing Escape.
func (f *fakeFullscreen) leave() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = false
}

type recorder struct {
	mu      sync.Mutex
	notices []model.Notice
	reports []string
}

func (r *recorder) Notify(n model.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) Report(kind, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, kind)
}

func (r *recorder) count(code string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.notices {
		if x.Code == code {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

type fixture struct {
	doc *fakeDoc
	fs  *fakeFullscreen
	rec *recorder
	g   *Guard
}

func newFixture(cfg Config) *fixture {
	f := &fixture{
		doc: newFakeDoc(),
		fs:  &fakeFullscreen{name: "standard", supported: true},
		rec: &recorder{},
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Hour
	}
	f.g = New(f.doc, ProbeFullscreen(f.fs), f.rec, f.rec, cfg, zerolog.Nop())
	return f
}

func TestProbeFullscreen(t *testing.T) {
	webkit := &fakeFullscreen{name: "webkit", supported: true}
	moz := &fakeFullscreen{name: "moz", supported: true}
	standard := &fakeFullscreen{name: "standard"}

	fc := ProbeFullscreen(standard, nil, webkit, moz)
	if err := fc.Request(context.Background()); err != nil {
		t.Fatal(err)
	}
	if webkit.requests != 1 || moz.requests != 0 || standard.requests != 0 {
		t.Fatalf("requests standard=%d webkit=%d moz=%d", standard.requests, webkit.requests, moz.requests)
	}
	if !fc.IsActive() {
		t.Fatal("IsActive false after request")
	}

	none := ProbeFullscreen(standard)
	if err := none.Request(context.Background()); !errors.Is(err, ErrFullscreenUnavailable) {
		t.Fatalf("error = %v", err)
	}
	if none.IsActive() {
		t.Fatal("unavailable controller reports active")
	}
}

func TestDevtoolsShortcuts(t *testing.T) {
	tests := []struct {
		ev   Event
		want bool
	}{
		{Event{Key: "F12"}, true},
		{Event{Key: "i", Ctrl: true, Shift: true}, true},
		{Event{Key: "J", Ctrl: true, Shift: true}, true},
		{Event{Key: "c", Ctrl: true, Shift: true}, true},
		{Event{Key: "u", Ctrl: true}, true},
		{Event{Key: "i", Meta: true, Alt: true}, true},
		{Event{Key: "U", Meta: true}, true},
		{Event{Key: "c", Ctrl: true}, false},
		{Event{Key: "i", Ctrl: true}, false},
		{Event{Key: "a"}, false},
		{Event{Key: "F5"}, false},
	}

	for _, tt := range tests {
		if got := isDevtoolsShortcut(tt.ev); got != tt.want {
			t.Errorf("isDevtoolsShortcut(%+v) = %v, want %v", tt.ev, got, tt.want)
		}
	}
}

func TestGuardInterceptsAndRestores(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	var origKeys []string
	origKeyDown := Handler(func(ev Event) bool {
		origKeys = append(origKeys, ev.Key)
		return false
	})
	f.doc.SetHandler(EventKeyDown, origKeyDown)
	f.doc.SetStyle(userSelect, "text")

	f.g.SetEnabled(ctx, true)
	f.g.Wait()

	for _, kind := range []EventKind{EventCopy, EventCut, EventPaste, EventSelectStart, EventContextMenu} {
		if !f.doc.dispatch(Event{Kind: kind}) {
			t.Errorf("%s not blocked", kind)
		}
	}
	if n := len(f.rec.notices); n != 5 {
		t.Fatalf("notices = %d, want 5", n)
	}
	if f.doc.styles[userSelect] != "none" {
		t.Fatalf("user-select = %q", f.doc.styles[userSelect])
	}

	if !f.doc.dispatch(Event{Kind: EventKeyDown, Key: "F12"}) {
		t.Error("F12 not blocked")
	}
	if f.doc.dispatch(Event{Kind: EventKeyDown, Key: "a"}) {
		t.Error("plain key blocked")
	}
	if len(origKeys) != 1 || origKeys[0] != "a" {
		t.Fatalf("previous keydown handler saw %v", origKeys)
	}

	f.g.SetEnabled(ctx, false)

	if f.doc.dispatch(Event{Kind: EventCopy}) {
		t.Error("copy still blocked after deactivation")
	}
	f.doc.dispatch(Event{Kind: EventKeyDown, Key: "F12"})
	if len(origKeys) != 2 {
		t.Error("original keydown handler not restored")
	}
	if f.doc.styles[userSelect] != "text" {
		t.Errorf("user-select = %q, want restored", f.doc.styles[userSelect])
	}
	if f.fs.exits != 1 {
		t.Errorf("fullscreen exits = %d, want 1", f.fs.exits)
	}
	if len(f.rec.reports) != len(f.rec.notices) {
		t.Errorf("reports %d != notices %d", len(f.rec.reports), len(f.rec.notices))
	}
}

func TestFullscreenDenialIsRemembered(t *testing.T) {
	f := newFixture(Config{ReentryDelay: time.Millisecond})
	f.fs.requestErr = errors.New("permission denied")

	f.g.SetEnabled(context.Background(), true)
	f.g.Wait()

	if f.rec.count("fullscreen_denied") != 1 {
		t.Fatalf("notices = %+v", f.rec.notices)
	}

	f.doc.dispatch(Event{Kind: EventFullscreenChange, Fullscreen: false})
	f.doc.dispatch(Event{Kind: EventFullscreenChange, Fullscreen: false})
	time.Sleep(20 * time.Millisecond)
	f.g.Wait()

	if n := f.fs.requestCount(); n != 1 {
		t.Fatalf("requests = %d, want 1", n)
	}
	if f.rec.count("fullscreen_exit") != 2 {
		t.Fatalf("exit warnings = %d", f.rec.count("fullscreen_exit"))
	}
	last := f.rec.notices[len(f.rec.notices)-1]
	if last.Level != model.NoticeError {
		t.Errorf("third warning level = %s, want escalated to error", last.Level)
	}
	f.g.SetEnabled(context.Background(), false)
}

func TestFullscreenReentryIsBounded(t *testing.T) {
	f := newFixture(Config{ReentryDelay: time.Millisecond, MaxExitAttempts: 3})
	f.g.SetEnabled(context.Background(), true)
	defer f.g.SetEnabled(context.Background(), false)
	waitFor(t, func() bool { return f.fs.requestCount() == 1 })

	for i := 1; i <= 3; i++ {
		f.fs.leave()
		f.doc.dispatch(Event{Kind: EventFullscreenChange, Fullscreen: false})
		want := i + 1
		waitFor(t, func() bool { return f.fs.requestCount() == want })
	}

	f.fs.leave()
	f.doc.dispatch(Event{Kind: EventFullscreenChange, Fullscreen: false})
	time.Sleep(20 * time.Millisecond)
	f.g.Wait()
	if n := f.fs.requestCount(); n != 4 {
		t.Fatalf("requests = %d, want 4", n)
	}

	if f.doc.dispatch(Event{Kind: EventFullscreenChange, Fullscreen: true}) {
		t.Error("fullscreenchange must not be prevented")
	}
}

func TestEndSessionExitsWithoutReentry(t *testing.T) {
	f := newFixture(Config{ReentryDelay: time.Millisecond})
	f.g.SetEnabled(context.Background(), true)
	waitFor(t, func() bool { return f.fs.Active() })

	f.g.EndSession("submitted")
	time.Sleep(20 * time.Millisecond)
	f.g.Wait()

	if f.g.Enabled() {
		t.Fatal("guard still enabled")
	}
	if f.fs.exits != 1 || f.fs.Active() {
		t.Fatalf("exits = %d active = %v", f.fs.exits, f.fs.Active())
	}
	if n := f.fs.requestCount(); n != 1 {
		t.Fatalf("requests = %d, want 1", n)
	}
	if f.rec.count("fullscreen_exit") != 0 {
		t.Fatal("intentional exit produced a warning")
	}
}

func TestDevtoolsPoll(t *testing.T) {
	f := newFixture(Config{PollInterval: time.Millisecond, DevtoolsThreshold: 160})
	f.doc.setSize(Size{InnerWidth: 1200, InnerHeight: 800, OuterWidth: 1210, OuterHeight: 880})

	f.g.SetEnabled(context.Background(), true)
	defer f.g.SetEnabled(context.Background(), false)

	time.Sleep(10 * time.Millisecond)
	if f.rec.count("devtools_open") != 0 {
		t.Fatal("false positive below threshold")
	}

	f.doc.setSize(Size{InnerWidth: 900, InnerHeight: 800, OuterWidth: 1210, OuterHeight: 880})
	waitFor(t, func() bool { return f.rec.count("devtools_open") == 1 })

	time.Sleep(10 * time.Millisecond)
	if n := f.rec.count("devtools_open"); n != 1 {
		t.Fatalf("devtools notices = %d, want 1 per opening", n)
	}
}
