package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// MessageType defines the type of WebSocket message.
type MessageType string

// Server-to-client message types.
const (
	MsgSessionSnapshot MessageType = "session_snapshot"
	MsgRaceState       MessageType = "race_state"
	MsgRaceFinished    MessageType = "race_finished"
	MsgParticipantJoin MessageType = "participant_joined"
	MsgParticipantLeft MessageType = "participant_left"
	MsgError           MessageType = "error"
)

// Client-to-server message types.
const (
	MsgKeyDown MessageType = "key_down"
	MsgKeyUp   MessageType = "key_up"
)

// Message is the WebSocket envelope format.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// KeyPayload carries a raw key signal from a participant client.
type KeyPayload struct {
	Key string `json:"key"`
}

// Hub tracks WebSocket connections per session: one coordinator and up to
// the roster ceiling of participants.
type Hub struct {
	log zerolog.Logger

	mu               sync.RWMutex
	coordinatorConns map[string]*Connection
	participantConns map[string]map[string]*Connection // code -> participantID -> conn

	register   chan *Connection
	unregister chan *Connection
}

// Connection represents one WebSocket client.
type Connection struct {
	SessionCode   string
	ParticipantID string // empty for coordinator connections
	IsCoordinator bool
	Send          chan []byte
}

// NewHub creates a hub and starts its coordination loop.
func NewHub(log zerolog.Logger) *Hub {
	h := &Hub{
		log:              log.With().Str("component", "ws").Logger(),
		coordinatorConns: make(map[string]*Connection),
		participantConns: make(map[string]map[string]*Connection),
		register:         make(chan *Connection),
		unregister:       make(chan *Connection),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if conn.IsCoordinator {
				h.coordinatorConns[conn.SessionCode] = conn
				h.log.Info().Str("code", conn.SessionCode).Msg("coordinator connected")
			} else {
				if h.participantConns[conn.SessionCode] == nil {
					h.participantConns[conn.SessionCode] = make(map[string]*Connection)
				}
				h.participantConns[conn.SessionCode][conn.ParticipantID] = conn
				h.log.Info().Str("code", conn.SessionCode).Str("participant", conn.ParticipantID).Msg("participant connected")
			}
			h.mu.Unlock()

			if !conn.IsCoordinator {
				h.SendToCoordinator(conn.SessionCode, MsgParticipantJoin, map[string]string{"participantId": conn.ParticipantID})
			}

		case conn := <-h.unregister:
			h.mu.Lock()
			left := false
			if conn.IsCoordinator {
				if existing, ok := h.coordinatorConns[conn.SessionCode]; ok && existing == conn {
					delete(h.coordinatorConns, conn.SessionCode)
					close(conn.Send)
					h.log.Info().Str("code", conn.SessionCode).Msg("coordinator disconnected")
				}
			} else if conns, ok := h.participantConns[conn.SessionCode]; ok {
				if existing, ok := conns[conn.ParticipantID]; ok && existing == conn {
					delete(conns, conn.ParticipantID)
					close(conn.Send)
					left = true
					h.log.Info().Str("code", conn.SessionCode).Str("participant", conn.ParticipantID).Msg("participant disconnected")
				}
			}
			h.mu.Unlock()

			if left {
				h.SendToCoordinator(conn.SessionCode, MsgParticipantLeft, map[string]string{"participantId": conn.ParticipantID})
			}
		}
	}
}

// Register adds a connection.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// SendToCoordinator sends a message to the session's coordinator, dropping
// it if the send buffer is full.
func (h *Hub) SendToCoordinator(code string, msgType MessageType, payload interface{}) {
	h.mu.RLock()
	conn, ok := h.coordinatorConns[code]
	h.mu.RUnlock()
	if ok {
		h.send(conn, msgType, payload)
	}
}

// SendToParticipant sends a message to one participant, dropping it if the
// send buffer is full.
func (h *Hub) SendToParticipant(code, participantID string, msgType MessageType, payload interface{}) {
	h.mu.RLock()
	var conn *Connection
	if conns, ok := h.participantConns[code]; ok {
		conn = conns[participantID]
	}
	h.mu.RUnlock()
	if conn != nil {
		h.send(conn, msgType, payload)
	}
}

// SendTo pushes a message onto a specific connection.
func (h *Hub) SendTo(conn *Connection, msgType MessageType, payload interface{}) {
	h.send(conn, msgType, payload)
}

func (h *Hub) send(conn *Connection, msgType MessageType, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Warn().Err(err).Str("type", string(msgType)).Msg("marshal payload failed")
		return
	}
	msg, err := json.Marshal(&Message{Type: msgType, Payload: data})
	if err != nil {
		return
	}
	select {
	case conn.Send <- msg:
	default:
		// Drop message if buffer full; the next snapshot supersedes it.
	}
}
