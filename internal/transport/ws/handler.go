package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/skyminlab/running-game/internal/accesscode"
	"github.com/skyminlab/running-game/internal/auth"
	"github.com/skyminlab/running-game/internal/store"
	"github.com/skyminlab/running-game/internal/syncer"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS policy is enforced by the REST layer
	},
}

// Handler upgrades and serves WebSocket connections.
type Handler struct {
	hub          *Hub
	authSvc      *auth.Service
	store        *store.SessionStore
	syncer       *syncer.Syncer
	clock        clockwork.Clock
	pollInterval time.Duration
	log          zerolog.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(hub *Hub, authSvc *auth.Service, st *store.SessionStore, sy *syncer.Syncer, clock clockwork.Clock, pollInterval time.Duration, log zerolog.Logger) *Handler {
	return &Handler{
		hub:          hub,
		authSvc:      authSvc,
		store:        st,
		syncer:       sy,
		clock:        clock,
		pollInterval: pollInterval,
		log:          log.With().Str("component", "ws").Logger(),
	}
}

// CoordinatorWS handles GET /v1/ws/sessions/{code}/coordinator.
func (h *Handler) CoordinatorWS(w http.ResponseWriter, r *http.Request) {
	code := accesscode.Normalize(mux.Vars(r)["code"])
	token := r.URL.Query().Get("token")

	claims, err := h.authSvc.ValidateCoordinatorToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if claims.SessionCode != code {
		http.Error(w, "token not valid for this session", http.StatusForbidden)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := &Connection{
		SessionCode:   code,
		IsCoordinator: true,
		Send:          make(chan []byte, 256),
	}
	h.hub.Register(conn)

	ctx, cancel := context.WithCancel(context.Background())
	watcher := h.watchSession(ctx, code, conn, nil)

	go h.writePump(wsConn, conn)
	go func() {
		h.readPump(wsConn, nil)
		// Teardown mirrors setup: stop the watcher before the connection
		// leaves the hub so nothing pushes to a closed Send channel.
		watcher.Stop()
		cancel()
		h.hub.Unregister(conn)
	}()
}

// ParticipantWS handles GET /v1/ws/sessions/{code}/participant. The
// connection carries the participant's raw key signals inbound and their
// race state outbound.
func (h *Handler) ParticipantWS(w http.ResponseWriter, r *http.Request) {
	code := accesscode.Normalize(mux.Vars(r)["code"])
	token := r.URL.Query().Get("token")

	claims, err := h.authSvc.ValidateParticipantToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if claims.SessionCode != code {
		http.Error(w, "token not valid for this session", http.StatusForbidden)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := &Connection{
		SessionCode:   code,
		ParticipantID: claims.ParticipantID,
		Send:          make(chan []byte, 256),
	}
	h.hub.Register(conn)

	ctx, cancel := context.WithCancel(context.Background())
	run := newRunner(h.hub, h.store, h.clock, h.log, code, claims.ParticipantID, conn)
	watcher := h.watchSession(ctx, code, conn, run)

	go h.writePump(wsConn, conn)
	go func() {
		h.readPump(wsConn, run)
		watcher.Stop()
		run.Close()
		cancel()
		h.hub.Unregister(conn)
	}()
}

// watchSession subscribes the connection to session change signals. Every
// signal re-pulls the full snapshot; for participants the runner also
// reconciles its race engine against the new phase.
func (h *Handler) watchSession(ctx context.Context, code string, conn *Connection, run *runner) *syncer.Watcher {
	refresh := func() {
		sess, err := h.store.Get(ctx, code)
		if err != nil {
			// Unreadable state means "no change yet", never an abort.
			h.log.Debug().Str("code", code).Err(err).Msg("snapshot refresh failed")
			return
		}
		if run != nil {
			run.sync(ctx, sess)
		} else {
			h.hub.SendTo(conn, MsgSessionSnapshot, sess)
		}
	}

	refresh()
	return h.syncer.Watch(ctx, code, h.clock, h.pollInterval, refresh)
}

func (h *Handler) readPump(wsConn *websocket.Conn, run *runner) {
	defer wsConn.Close()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			return
		}
		if run == nil {
			continue // coordinator connections are push-only
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		var key KeyPayload
		if err := json.Unmarshal(msg.Payload, &key); err != nil || key.Key == "" {
			continue
		}

		switch msg.Type {
		case MsgKeyDown:
			run.KeyDown(key.Key)
		case MsgKeyUp:
			run.KeyUp(key.Key)
		}
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case data, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := wsConn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
