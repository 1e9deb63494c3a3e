package websocket

import (
	"sync"

	"github.com/stemsi/quizroom-backend/internal/guard"
)

// RemoteDocument is the server-side stand-in for a client's document.
// Events the client reports are dispatched to the installed handlers, and
// style changes are forwarded to the client.
type RemoteDocument struct {
	out Sender

	mu       sync.Mutex
	handlers map[guard.EventKind]guard.Handler
	styles   map[string]string
	size     guard.Size
	hasSize  bool
}

var _ guard.Document = (*RemoteDocument)(nil)

func NewRemoteDocument(out Sender) *RemoteDocument {
	return &RemoteDocument{
		out:      out,
		handlers: make(map[guard.EventKind]guard.Handler),
		styles:   make(map[string]string),
	}
}

func (d *RemoteDocument) SetHandler(kind guard.EventKind, h guard.Handler) guard.Handler {
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

func (d *RemoteDocument) SetStyle(property, value string) string {
	d.mu.Lock()
	prev := d.styles[property]
	d.styles[property] = value
	d.mu.Unlock()

	_ = d.out.Send(EventStyle, StylePayload{Property: property, Value: value})
	return prev
}

func (d *RemoteDocument) WindowSize() (guard.Size, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size, d.hasSize
}

// SetWindowSize records the geometry last reported by the client.
func (d *RemoteDocument) SetWindowSize(s guard.Size) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.size, d.hasSize = s, true
}

// Dispatch runs the handler for ev and reports whether the client should
// prevent the default action. Unhandled events are allowed.
func (d *RemoteDocument) Dispatch(ev guard.Event) bool {
	d.mu.Lock()
	h := d.handlers[ev.Kind]
	d.mu.Unlock()
	if h == nil {
		return false
	}
	return h(ev)
}
