package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizroom-backend/internal/config"
	"github.com/stemsi/quizroom-backend/internal/guard"
	"github.com/stemsi/quizroom-backend/internal/middleware"
	"github.com/stemsi/quizroom-backend/internal/model"
	"github.com/stemsi/quizroom-backend/internal/session"
	ws "github.com/stemsi/quizroom-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// QuizSettingsSource provides the admin controlled quiz settings.
type QuizSettingsSource interface {
	QuizSettings(ctx context.Context, defaultMinutes int) (model.QuizSettings, error)
}

// QuizStreamConfig tunes the sessions hosted by WSHandler.
type QuizStreamConfig struct {
	Subjects       []string
	Session        session.Options
	Guard          guard.Config
	AllowedOrigins []string
}

// WSHandler hosts one quiz session per WebSocket connection.
type WSHandler struct {
	backend  session.Backend
	settings QuizSettingsSource
	store    session.Store
	rdb      *redis.Client
	cfg      QuizStreamConfig
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. settings may be nil, in which case
// cfg.Session.Duration is used as is.
func NewWSHandler(backend session.Backend, settings QuizSettingsSource, store session.Store, rdb *redis.Client, cfg QuizStreamConfig, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		backend:  backend,
		settings: settings,
		store:    store,
		rdb:      rdb,
		cfg:      cfg,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(cfg.AllowedOrigins),
	}
}

// QuizStream godoc
// WS /ws/v1/student/quiz?token=...&fullscreen=standard,webkit
// Upgrades to WebSocket and runs the student's quiz session over it.
func (h *WSHandler) QuizStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	opts := h.sessionOptions(c.Request.Context())

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	userID := claims.UserID
	log := h.log.With().Int("user_id", userID).Logger()

	link := ws.NewFullscreenLink(conn)
	doc := ws.NewRemoteDocument(conn)
	view := &quizView{out: conn, log: log}
	reporter := &violationReporter{rdb: h.rdb, userID: userID, log: log}

	g := guard.New(doc, guard.ProbeFullscreen(link.Backends(c.Query("fullscreen"))...), view, reporter, h.cfg.Guard, log)
	bridge := session.NewBridge(h.store, config.CacheKey.QuizAnswersKey(userID), config.CacheKey.QuizStartKey(userID), log)
	ctrl := session.NewController(userID, h.backend, view, g, bridge, opts, log)
	sel := session.NewSelector(userID, h.cfg.Subjects, h.backend, ctrl, opts.RequestTimeout, log)

	s := &quizStream{
		conn:    conn,
		link:    link,
		doc:     doc,
		ctrl:    ctrl,
		sel:     sel,
		timeout: opts.RequestTimeout,
		log:     log,
	}
	defer func() {
		ctrl.Close()
		link.Abort()
		g.Wait()
	}()

	log.Info().Msg("Student connected")
	ctx := context.Background()
	ctrl.Mount(ctx)
	s.gate = sel.Gate(ctx)
	s.sendGate()

	for {
		var msg ws.RequestPayload
		if err := conn.Read(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Unexpected close")
			} else {
				log.Debug().Msg("Connection closed")
			}
			return
		}
		s.handle(ctx, &msg)
	}
}

// sessionOptions applies the admin time limit on top of the configured
// options. A failed lookup keeps the configured duration.
func (h *WSHandler) sessionOptions(ctx context.Context) session.Options {
	opts := h.cfg.Session
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = session.DefaultRequestTimeout
	}
	if h.settings == nil {
		return opts
	}

	defaultMinutes := int(opts.Duration / time.Minute)
	if defaultMinutes <= 0 {
		defaultMinutes = int(session.DefaultDuration / time.Minute)
	}
	ctx, cancel := context.WithTimeout(ctx, opts.RequestTimeout)
	defer cancel()
	qs, err := h.settings.QuizSettings(ctx, defaultMinutes)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to load quiz settings, using configured duration")
		return opts
	}
	opts.Duration = time.Duration(qs.TimeLimitMinutes) * time.Minute
	return opts
}

var (
	errUnknownAction = errors.New("unknown action")
	errMissingField  = errors.New("missing field")
)

// quizStream dispatches the messages of one connection.
type quizStream struct {
	conn    *ws.Conn
	link    *ws.FullscreenLink
	doc     *ws.RemoteDocument
	ctrl    *session.Controller
	sel     *session.Selector
	gate    session.GateState
	timeout time.Duration
	log     zerolog.Logger
}

func (s *quizStream) handle(parent context.Context, msg *ws.RequestPayload) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	var (
		err      error
		snapshot = true
	)
	switch msg.Action {
	case ws.ActionSelectSubject:
		snapshot = false
		if err = s.sel.Toggle(msg.Subject); err == nil {
			s.sendGate()
		}
	case ws.ActionStart:
		err = s.sel.Start(ctx)
	case ws.ActionSelectOption:
		err = s.ctrl.SelectOption(ctx, msg.OptionID)
	case ws.ActionClear:
		err = s.ctrl.Clear(ctx)
	case ws.ActionPrev:
		err = s.ctrl.Prev()
	case ws.ActionNext:
		err = s.ctrl.Next()
	case ws.ActionGoto:
		if msg.Index == nil {
			err = fmt.Errorf("%w: index", errMissingField)
			break
		}
		err = s.ctrl.Goto(*msg.Index)
	case ws.ActionSaveNext:
		err = s.ctrl.SaveAndNext(ctx)
	case ws.ActionReview:
		err = s.ctrl.ToggleReview()
	case ws.ActionSubmit:
		err = s.ctrl.Submit(ctx, false)
	case ws.ActionConfirmSubmit:
		err = s.ctrl.Submit(ctx, true)
	case ws.ActionCancelSubmit:
	case ws.ActionDocumentEvent:
		snapshot = false
		if msg.Event == nil {
			err = fmt.Errorf("%w: event", errMissingField)
			break
		}
		if msg.Event.Kind == guard.EventFullscreenChange {
			s.link.SetActive(msg.Event.Fullscreen)
		}
		s.doc.Dispatch(*msg.Event)
	case ws.ActionWindowSize:
		snapshot = false
		if msg.Size == nil {
			err = fmt.Errorf("%w: size", errMissingField)
			break
		}
		s.doc.SetWindowSize(*msg.Size)
	case ws.ActionFullscreenResult:
		snapshot = false
		s.link.Resolve(msg.RequestID, msg.OK, msg.Error)
	case ws.ActionResults:
		snapshot = false
		var res *model.QuizResults
		if res, err = s.ctrl.Results(ctx); err == nil {
			s.send(ws.EventResults, res)
		}
	case ws.ActionPing:
		snapshot = false
		s.send(ws.EventPong, nil)
	default:
		snapshot = false
		err = fmt.Errorf("%w: %q", errUnknownAction, msg.Action)
	}

	if err != nil {
		s.log.Debug().Err(err).Str("action", string(msg.Action)).Msg("Action rejected")
		if !shownToStudent(err) {
			s.send(ws.EventError, ws.ErrorPayload{Message: err.Error()})
		}
	}
	if snapshot && (err == nil || msg.Action != ws.ActionStart) {
		s.send(ws.EventSnapshot, s.ctrl.Snapshot())
	}
}

// shownToStudent reports errors the student already sees as a toast or the
// time-up modal.
func shownToStudent(err error) bool {
	return errors.Is(err, session.ErrNoSelection) ||
		errors.Is(err, session.ErrSubmitFailed) ||
		errors.Is(err, session.ErrTimeUp)
}

func (s *quizStream) sendGate() {
	s.send(ws.EventGate, ws.GatePayload{
		State:    string(s.gate),
		Subjects: s.sel.Available(),
		Selected: s.sel.Selected(),
		CanStart: s.sel.CanStart(),
	})
}

func (s *quizStream) send(event ws.Event, data any) {
	if err := s.conn.Send(event, data); err != nil {
		s.log.Debug().Err(err).Str("event", string(event)).Msg("Send failed")
	}
}

// quizView renders session and guard output as events on the connection.
type quizView struct {
	out ws.Sender
	log zerolog.Logger
}

var (
	_ session.View   = (*quizView)(nil)
	_ guard.Notifier = (*quizView)(nil)
)

func (v *quizView) Toast(n model.Notice)  { v.send(ws.EventToast, n) }
func (v *quizView) Notify(n model.Notice) { v.send(ws.EventToast, n) }
func (v *quizView) PromptSubmit(unanswered int) {
	v.send(ws.EventPromptSubmit, ws.PromptSubmitPayload{Unanswered: unanswered})
}
func (v *quizView) TimeLeft(seconds int) {
	v.send(ws.EventTimeLeft, ws.TimeLeftPayload{Seconds: seconds})
}
func (v *quizView) TimeUp()               { v.send(ws.EventTimeUp, nil) }
func (v *quizView) Redirect(route string) { v.send(ws.EventRedirect, ws.RedirectPayload{Route: route}) }

func (v *quizView) send(event ws.Event, data any) {
	if err := v.out.Send(event, data); err != nil {
		v.log.Debug().Err(err).Str("event", string(event)).Msg("Send failed")
	}
}

// violationReporter queues guard violations for the violation worker.
type violationReporter struct {
	rdb    *redis.Client
	userID int
	log    zerolog.Logger
}

const reportTimeout = 2 * time.Second

func (r *violationReporter) Report(kind, detail string) {
	if r.rdb == nil {
		return
	}
	payload, err := json.Marshal(model.Violation{
		UserID:     r.userID,
		Kind:       kind,
		Detail:     detail,
		RecordedAt: time.Now().UTC(),
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()
	if err := r.rdb.RPush(ctx, config.WorkerKey.PersistViolationQueue, payload).Err(); err != nil {
		r.log.Error().Err(err).Str("kind", kind).Msg("Failed to queue violation")
	}
}
