package guard

import "strings"

// EventKind names a document-level event the guard intercepts.
type EventKind string

const (
	EventCopy             EventKind = "copy"
	EventCut              EventKind = "cut"
	EventPaste            EventKind = "paste"
	EventSelectStart      EventKind = "selectstart"
	EventContextMenu      EventKind = "contextmenu"
	EventKeyDown          EventKind = "keydown"
	EventFullscreenChange EventKind = "fullscreenchange"
)

// Event is a document event as reported by the client.
type Event struct {
	Kind  EventKind `json:"kind"`
	Key   string    `json:"key,omitempty"`
	Ctrl  bool      `json:"ctrl,omitempty"`
	Shift bool      `json:"shift,omitempty"`
	Alt   bool      `json:"alt,omitempty"`
	Meta  bool      `json:"meta,omitempty"`
	// Fullscreen is the document state after a fullscreenchange event.
	Fullscreen bool `json:"fullscreen,omitempty"`
}

// Handler processes an event and reports whether its default action
// must be prevented.
type Handler func(Event) bool

// Size is the window geometry used by the devtools heuristic.
type Size struct {
	InnerWidth  int `json:"inner_width"`
	InnerHeight int `json:"inner_height"`
	OuterWidth  int `json:"outer_width"`
	OuterHeight int `json:"outer_height"`
}

// Document is the surface the guard installs itself on.
type Document interface {
	// SetHandler installs h for kind and returns the handler it replaced.
	// A nil h removes the handler.
	SetHandler(kind EventKind, h Handler) Handler
	// SetStyle sets a root style property and returns its previous value.
	SetStyle(property, value string) string
	// WindowSize returns the last known window geometry.
	WindowSize() (Size, bool)
}

var blockedEvents = map[EventKind]struct {
	code    string
	message string
}{
	EventCopy:        {"copy_blocked", "Copying is disabled during the quiz."},
	EventCut:         {"cut_blocked", "Cutting is disabled during the quiz."},
	EventPaste:       {"paste_blocked", "Pasting is disabled during the quiz."},
	EventSelectStart: {"selection_blocked", "Text selection is disabled during the quiz."},
	EventContextMenu: {"context_menu_blocked", "Right-click is disabled during the quiz."},
}

// isDevtoolsShortcut matches the key combinations that open developer tools
// or the page source.
func isDevtoolsShortcut(ev Event) bool {
	key := strings.ToUpper(ev.Key)
	inspect := key == "I" || key == "J" || key == "C"

	switch {
	case key == "F12":
		return true
	case ev.Ctrl && ev.Shift && inspect:
		return true
	case ev.Ctrl && key == "U":
		return true
	case ev.Meta && ev.Alt && inspect:
		return true
	case ev.Meta && key == "U":
		return true
	}
	return false
}
