package websocket

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/quizroom-backend/internal/guard"
)

// FullscreenAPIs lists the client fullscreen APIs in order of preference.
var FullscreenAPIs = []string{"standard", "webkit", "moz", "ms"}

type fullscreenResult struct {
	ok  bool
	err string
}

// FullscreenLink drives the client's fullscreen through commands over the
// connection and tracks whether the client is in fullscreen.
type FullscreenLink struct {
	out Sender

	mu      sync.Mutex
	pending map[string]chan fullscreenResult
	active  bool
}

func NewFullscreenLink(out Sender) *FullscreenLink {
	return &FullscreenLink{out: out, pending: make(map[string]chan fullscreenResult)}
}

// Backends returns one backend per known API, supported when the client
// advertised it in supported (a comma separated list).
func (l *FullscreenLink) Backends(supported string) []guard.FullscreenBackend {
	var have []string
	for _, s := range strings.Split(supported, ",") {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			have = append(have, s)
		}
	}

	backends := make([]guard.FullscreenBackend, 0, len(FullscreenAPIs))
	for _, api := range FullscreenAPIs {
		backends = append(backends, &linkBackend{link: l, api: api, supported: slices.Contains(have, api)})
	}
	return backends
}

// Resolve completes a pending request with the client's answer.
func (l *FullscreenLink) Resolve(id string, ok bool, errMsg string) {
	l.mu.Lock()
	ch, found := l.pending[id]
	delete(l.pending, id)
	l.mu.Unlock()
	if found {
		ch <- fullscreenResult{ok: ok, err: errMsg}
	}
}

// Abort denies every pending request. It is called when the client goes away.
func (l *FullscreenLink) Abort() {
	l.mu.Lock()
	pending := l.pending
	l.pending = make(map[string]chan fullscreenResult)
	l.mu.Unlock()
	for _, ch := range pending {
		ch <- fullscreenResult{err: "connection closed"}
	}
}

// SetActive records a fullscreenchange reported by the client.
func (l *FullscreenLink) SetActive(active bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = active
}

func (l *FullscreenLink) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *FullscreenLink) request(ctx context.Context, api string) error {
	id := uuid.NewString()
	ch := make(chan fullscreenResult, 1)
	l.mu.Lock()
	l.pending[id] = ch
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.pending, id)
		l.mu.Unlock()
	}()

	if err := l.out.Send(EventFullscreen, FullscreenCommand{ID: id, Op: "request", API: api}); err != nil {
		return fmt.Errorf("send fullscreen request: %w", err)
	}

	select {
	case res := <-ch:
		if !res.ok {
			if res.err == "" {
				return guard.ErrFullscreenDenied
			}
			return fmt.Errorf("%w: %s", guard.ErrFullscreenDenied, res.err)
		}
		l.SetActive(true)
		return nil
	case <-ctx.Done():
		return errors.Join(guard.ErrFullscreenDenied, ctx.Err())
	}
}

func (l *FullscreenLink) exit(api string) error {
	l.SetActive(false)
	return l.out.Send(EventFullscreen, FullscreenCommand{Op: "exit", API: api})
}

type linkBackend struct {
	link      *FullscreenLink
	api       string
	supported bool
}

func (b *linkBackend) Name() string                      { return b.api }
func (b *linkBackend) Supported() bool                   { return b.supported }
func (b *linkBackend) Request(ctx context.Context) error { return b.link.request(ctx, b.api) }
func (b *linkBackend) Exit(context.Context) error        { return b.link.exit(b.api) }
func (b *linkBackend) Active() bool                      { return b.link.Active() }
