// Package server exposes the duplex session channel: one websocket
// connection per client, inbound client events in, status and response
// events out.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Mriidul2508/Bosom/internal/capability"
	"github.com/Mriidul2508/Bosom/internal/dispatch"
	"github.com/Mriidul2508/Bosom/internal/models"
	"github.com/Mriidul2508/Bosom/internal/session"
)

const (
	readyMessage     = "Online and Ready."
	listeningMessage = "Listening..."
	panicMessage     = "Sorry, something went wrong on my end."

	authLinkedMessage = "Email account linked."
	authFailedMessage = "That code didn't work. Please try again."

	outboundBuffer = 16
)

type Handler struct {
	dispatcher *dispatch.Dispatcher
	sessions   *session.Manager
	creds      capability.CredentialStore
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	now        func() time.Time
}

func NewHandler(dispatcher *dispatch.Dispatcher, sessions *session.Manager, creds capability.CredentialStore, allowedOrigins []string, logger *zap.Logger) *Handler {
	origins := make(map[string]bool)
	for _, o := range allowedOrigins {
		origins[strings.TrimSpace(o)] = true
	}
	h := &Handler{
		dispatcher: dispatcher,
		sessions:   sessions,
		creds:      creds,
		logger:     logger,
		now:        time.Now,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(origins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // allow non-browser clients
			}
			return origins[origin]
		},
	}
	return h
}

// WithClock overrides the time source used for greetings.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// clientConn is the outbound side of one connection. Events go
// through a single writer goroutine because gorilla connections do not
// allow concurrent writes. Once the connection context is done, sends
// become silent drops, which is how results of dispatches that outlive
// their session get discarded.
type clientConn struct {
	ctx context.Context
	out chan models.ServerEvent
}

func (c *clientConn) send(ev models.ServerEvent) {
	select {
	case <-c.ctx.Done():
	case c.out <- ev:
	}
}

func (c *clientConn) StatusUpdate(message string) { c.send(models.StatusUpdate(message)) }
func (c *clientConn) UserSpeech(message string)   { c.send(models.UserSpeech(message)) }
func (c *clientConn) StreamChunk(chunk string)    { c.send(models.StreamChunk(chunk)) }

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	sess := h.sessions.Create(sessionID)
	defer h.sessions.Remove(sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	cc := &clientConn{ctx: ctx, out: make(chan models.ServerEvent, outboundBuffer)}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-cc.out:
				if err := conn.WriteJSON(ev); err != nil {
					h.logger.Warn("websocket write failed",
						zap.String("session_id", sessionID), zap.Error(err))
					cancel()
					return
				}
			}
		}
	}()

	cc.send(models.ServerEvent{Type: models.EventConnected, SessionID: sessionID})
	cc.send(models.StatusUpdate(readyMessage))

	for {
		var ev models.ClientEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket closed unexpectedly",
					zap.String("session_id", sessionID), zap.Error(err))
			}
			return
		}

		switch ev.Type {
		case models.EventStartInteraction:
			h.handleStartInteraction(cc, sess)
		case models.EventSpeechRecognized:
			h.handleSpeech(ctx, cc, sess, ev.Query)
		case models.EventSubmitAuthCode:
			h.handleAuthCode(ctx, cc, ev.Code)
		default:
			h.logger.Warn("unknown client event",
				zap.String("session_id", sessionID), zap.String("type", ev.Type))
		}
	}
}

func (h *Handler) handleStartInteraction(cc *clientConn, sess *session.Session) {
	// A start while the session is already in continuous mode, such as
	// a client restarting its microphone loop, re-acknowledges without
	// repeating the greeting.
	already := sess.Continuous()
	sess.SetContinuous(true)
	cc.send(models.StatusUpdate(listeningMessage))
	if already {
		return
	}
	cc.send(models.FinalResponse(models.ResponseEnvelope{
		Message:                 timeOfDayGreeting(h.now()),
		ShouldContinueListening: true,
	}))
}

func (h *Handler) handleSpeech(ctx context.Context, cc *clientConn, sess *session.Session, query string) {
	// Transcription noise: drop silently before the single-flight gate
	// so blank events never consume the dispatch slot.
	if strings.TrimSpace(query) == "" {
		return
	}

	if !sess.TryBeginDispatch() {
		h.logger.Debug("utterance dropped, dispatch in flight",
			zap.String("session_id", sess.ID))
		return
	}

	utt := models.Utterance{Text: query, ReceivedAt: h.now()}

	// The adapter call may block on network I/O, so it runs off the
	// read loop. Disconnect does not cancel it; the worker's sends
	// just land nowhere once the connection context is done.
	go func() {
		defer sess.EndDispatch()
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("dispatch panicked",
					zap.String("session_id", sess.ID), zap.Any("panic", rec))
				sess.SetContinuous(false)
				cc.send(models.FinalResponse(models.ResponseEnvelope{
					Message:                 panicMessage,
					ShouldContinueListening: false,
				}))
			}
		}()

		res, ok := h.dispatcher.Dispatch(context.WithoutCancel(ctx), cc, utt)
		if !ok {
			return
		}
		// The session's continuous flag tracks the terminal envelope,
		// so quitting or opening a resource leaves the session idle and
		// a later start_interaction greets again.
		sess.SetContinuous(res.Envelope.ShouldContinueListening)
		if res.Streamed {
			cc.send(models.StreamEnd(res.Envelope))
			return
		}
		cc.send(models.FinalResponse(res.Envelope))
	}()
}

func (h *Handler) handleAuthCode(ctx context.Context, cc *clientConn, code string) {
	if err := h.creds.ExchangeCode(ctx, code); err != nil {
		h.logger.Warn("auth code exchange failed", zap.Error(err))
		cc.send(models.StatusUpdate(authFailedMessage))
		return
	}
	cc.send(models.StatusUpdate(authLinkedMessage))
}

func timeOfDayGreeting(t time.Time) string {
	switch {
	case t.Hour() < 12:
		return "Good morning! How can I help you?"
	case t.Hour() < 18:
		return "Good afternoon! How can I help you?"
	default:
		return "Good evening! How can I help you?"
	}
}
