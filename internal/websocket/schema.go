package websocket

import "github.com/stemsi/quizroom-backend/internal/guard"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelectSubject    Action = "select_subject"
	ActionStart            Action = "start"
	ActionSelectOption     Action = "select_option"
	ActionClear            Action = "clear"
	ActionPrev             Action = "prev"
	ActionNext             Action = "next"
	ActionGoto             Action = "goto"
	ActionSaveNext         Action = "save_next"
	ActionReview           Action = "review"
	ActionSubmit           Action = "submit"
	ActionConfirmSubmit    Action = "confirm_submit"
	ActionCancelSubmit     Action = "cancel_submit"
	ActionDocumentEvent    Action = "document_event"
	ActionWindowSize       Action = "window_size"
	ActionFullscreenResult Action = "fullscreen_result"
	ActionResults          Action = "results"
	ActionPing             Action = "ping"
)

// RequestPayload is every message a client sends. Only the fields relevant
// to Action are set.
type RequestPayload struct {
	Action   Action       `json:"action"`
	Subject  string       `json:"subject,omitempty"`
	OptionID string       `json:"option_id,omitempty"`
	Index    *int         `json:"index,omitempty"`
	Event    *guard.Event `json:"event,omitempty"`
	Size     *guard.Size  `json:"size,omitempty"`
	// Fullscreen command acknowledgement.
	RequestID string `json:"request_id,omitempty"`
	OK        bool   `json:"ok,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventGate         Event = "gate"
	EventSnapshot     Event = "snapshot"
	EventToast        Event = "toast"
	EventPromptSubmit Event = "prompt_submit"
	EventTimeLeft     Event = "time_left"
	EventTimeUp       Event = "time_up"
	EventRedirect     Event = "redirect"
	EventFullscreen   Event = "fullscreen"
	EventStyle        Event = "style"
	EventError        Event = "error"
	EventResults      Event = "results"
	EventPong         Event = "pong"
)

// Envelope wraps every server message.
type Envelope struct {
	Event Event `json:"event"`
	Data  any   `json:"data,omitempty"`
}

type GatePayload struct {
	State    string   `json:"state"`
	Subjects []string `json:"subjects"`
	Selected []string `json:"selected"`
	CanStart bool     `json:"can_start"`
}

type PromptSubmitPayload struct {
	Unanswered int `json:"unanswered"`
}

type TimeLeftPayload struct {
	Seconds int `json:"seconds"`
}

type RedirectPayload struct {
	Route string `json:"route"`
}

// FullscreenCommand asks the client to enter or leave fullscreen through
// the named API. Requests are answered with ActionFullscreenResult.
type FullscreenCommand struct {
	ID  string `json:"id,omitempty"`
	Op  string `json:"op"`
	API string `json:"api"`
}

type StylePayload struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
