// Package guard deters copying, developer tools and leaving fullscreen while
// a quiz session is running.
package guard

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizroom-backend/internal/model"
)

// Notifier shows a notice to the student.
type Notifier interface {
	Notify(n model.Notice)
}

// Reporter records a violation for later review.
type Reporter interface {
	Report(kind, detail string)
}

// Config tunes the guard.
type Config struct {
	PollInterval      time.Duration
	DevtoolsThreshold int
	ReentryDelay      time.Duration
	MaxExitAttempts   int
	RequestTimeout    time.Duration
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		PollInterval:      time.Second,
		DevtoolsThreshold: 160,
		ReentryDelay:      500 * time.Millisecond,
		MaxExitAttempts:   3,
		RequestTimeout:    10 * time.Second,
	}
}

const userSelect = "user-select"

var interceptedEvents = []EventKind{
	EventCopy,
	EventCut,
	EventPaste,
	EventSelectStart,
	EventContextMenu,
	EventKeyDown,
	EventFullscreenChange,
}

// Guard is activated for the duration of one session. Its zero value is not
// usable; construct it with New.
type Guard struct {
	doc      Document
	fs       FullscreenController
	notifier Notifier
	reporter Reporter
	cfg      Config
	log      zerolog.Logger

	wg sync.WaitGroup

	mu           sync.Mutex
	enabled      bool
	intentional  bool
	denied       bool
	exits        int
	warnings     int
	devtoolsOpen bool
	saved        map[EventKind]Handler
	savedStyle   string
	stopPoll     chan struct{}
	reentry      *time.Timer
}

// New creates a disabled Guard. reporter may be nil.
func New(doc Document, fs FullscreenController, notifier Notifier, reporter Reporter, cfg Config, log zerolog.Logger) *Guard {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.DevtoolsThreshold <= 0 {
		cfg.DevtoolsThreshold = def.DevtoolsThreshold
	}
	if cfg.ReentryDelay <= 0 {
		cfg.ReentryDelay = def.ReentryDelay
	}
	if cfg.MaxExitAttempts <= 0 {
		cfg.MaxExitAttempts = def.MaxExitAttempts
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}

	l := log.With().Str("component", "anti_cheat_guard").Logger()
	if b, ok := fs.(interface{ Backend() string }); ok {
		l = l.With().Str("fullscreen_api", b.Backend()).Logger()
	}

	return &Guard{
		doc:      doc,
		fs:       fs,
		notifier: notifier,
		reporter: reporter,
		cfg:      cfg,
		log:      l,
	}
}

// SetEnabled activates or deactivates the guard. Repeated calls with the
// same value are no-ops.
func (g *Guard) SetEnabled(ctx context.Context, enabled bool) {
	if enabled {
		g.activate()
		return
	}
	g.deactivate(ctx)
}

// EndSession deactivates the guard after marking the coming fullscreen exit
// as intentional, so it is not fought.
func (g *Guard) EndSession(reason string) {
	g.mu.Lock()
	g.intentional = true
	g.mu.Unlock()

	g.log.Info().Str("reason", reason).Msg("Session ended")
	g.deactivate(context.Background())
}

// Enabled reports whether the guard is active.
func (g *Guard) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}

// Wait blocks until in-flight fullscreen requests have returned.
func (g *Guard) Wait() {
	g.wg.Wait()
}

func (g *Guard) activate() {
	g.mu.Lock()
	if g.enabled {
		g.mu.Unlock()
		return
	}
	g.enabled = true
	g.intentional = false
	g.exits = 0
	g.devtoolsOpen = false
	stop := make(chan struct{})
	g.stopPoll = stop
	g.mu.Unlock()

	saved := make(map[EventKind]Handler, len(interceptedEvents))
	for _, kind := range interceptedEvents {
		saved[kind] = g.doc.SetHandler(kind, g.handlerFor(kind, saved))
	}
	style := g.doc.SetStyle(userSelect, "none")

	g.mu.Lock()
	g.saved = saved
	g.savedStyle = style
	g.mu.Unlock()

	go g.poll(stop)
	g.requestFullscreen()
	g.log.Debug().Msg("Guard activated")
}

func (g *Guard) deactivate(ctx context.Context) {
	g.mu.Lock()
	if !g.enabled {
		g.mu.Unlock()
		return
	}
	g.enabled = false
	g.intentional = true
	saved, style := g.saved, g.savedStyle
	g.saved = nil
	close(g.stopPoll)
	g.stopPoll = nil
	if g.reentry != nil {
		g.reentry.Stop()
		g.reentry = nil
	}
	g.mu.Unlock()

	for _, kind := range interceptedEvents {
		g.doc.SetHandler(kind, saved[kind])
	}
	g.doc.SetStyle(userSelect, style)

	if g.fs.IsActive() {
		if err := g.fs.Exit(ctx); err != nil {
			g.log.Warn().Err(err).Msg("Failed to exit fullscreen")
		}
	}
	g.log.Debug().Msg("Guard deactivated")
}

func (g *Guard) handlerFor(kind EventKind, saved map[EventKind]Handler) Handler {
	switch kind {
	case EventKeyDown:
		return func(ev Event) bool {
			if isDevtoolsShortcut(ev) {
				g.violation(model.NoticeWarning, "devtools_shortcut", "Developer tools are disabled during the quiz.", ev.Key)
				return true
			}
			if prev := saved[EventKeyDown]; prev != nil {
				return prev(ev)
			}
			return false
		}
	case EventFullscreenChange:
		return func(ev Event) bool {
			g.onFullscreenChange(ev)
			if prev := saved[EventFullscreenChange]; prev != nil {
				return prev(ev)
			}
			return false
		}
	default:
		b := blockedEvents[kind]
		return func(Event) bool {
			g.violation(model.NoticeWarning, b.code, b.message, string(kind))
			return true
		}
	}
}

func (g *Guard) requestFullscreen() {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		g.mu.Lock()
		skip := !g.enabled || g.denied
		g.mu.Unlock()
		if skip {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), g.cfg.RequestTimeout)
		defer cancel()
		err := g.fs.Request(ctx)
		if err == nil {
			return
		}

		g.mu.Lock()
		g.denied = true
		g.mu.Unlock()
		g.log.Warn().Err(err).Msg("Fullscreen request failed, not retrying")
		g.fullscreenWarning("fullscreen_denied", err.Error())
	}()
}

func (g *Guard) onFullscreenChange(ev Event) {
	if ev.Fullscreen {
		return
	}

	g.mu.Lock()
	if !g.enabled || g.intentional {
		g.mu.Unlock()
		return
	}
	g.exits++
	exits, denied := g.exits, g.denied
	retry := !denied && exits <= g.cfg.MaxExitAttempts && g.reentry == nil
	if retry {
		g.reentry = time.AfterFunc(g.cfg.ReentryDelay, func() {
			g.mu.Lock()
			g.reentry = nil
			g.mu.Unlock()
			g.requestFullscreen()
		})
	}
	g.mu.Unlock()

	g.fullscreenWarning("fullscreen_exit", "exit")
}

// fullscreenWarning notifies with a message that escalates on every call.
func (g *Guard) fullscreenWarning(code, detail string) {
	g.mu.Lock()
	g.warnings++
	n := g.warnings
	g.mu.Unlock()

	level := model.NoticeWarning
	var msg string
	switch {
	case n == 1:
		msg = "Please keep the quiz in fullscreen mode."
	case n == 2:
		msg = "Fullscreen is required. Further exits will be reported."
	default:
		level = model.NoticeError
		msg = "Repeated fullscreen exits have been recorded."
	}
	g.violation(level, code, msg, detail)
}

func (g *Guard) poll(stop <-chan struct{}) {
	t := time.NewTicker(g.cfg.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			g.checkDevtools()
		}
	}
}

// checkDevtools flags a docked devtools panel by the gap between the outer
// and inner window size. It only notifies on the transition to open.
func (g *Guard) checkDevtools() {
	size, ok := g.doc.WindowSize()
	if !ok {
		return
	}
	open := size.OuterWidth-size.InnerWidth > g.cfg.DevtoolsThreshold ||
		size.OuterHeight-size.InnerHeight > g.cfg.DevtoolsThreshold

	g.mu.Lock()
	notify := open && !g.devtoolsOpen && g.enabled
	g.devtoolsOpen = open
	g.mu.Unlock()

	if notify {
		g.violation(model.NoticeWarning, "devtools_open", "Please close developer tools.", "window size")
	}
}

func (g *Guard) violation(level model.NoticeLevel, code, message, detail string) {
	g.notifier.Notify(model.Notice{Level: level, Code: code, Message: message})
	if g.reporter != nil {
		g.reporter.Report(code, detail)
	}
}
