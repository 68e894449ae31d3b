package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/skyminlab/running-game/internal/model"
	"github.com/skyminlab/running-game/internal/phase"
	"github.com/skyminlab/running-game/internal/service"
	"github.com/skyminlab/running-game/internal/store"
	"github.com/skyminlab/running-game/internal/transport/rest/middleware"
)

// SessionHandler handles session lifecycle and membership endpoints.
type SessionHandler struct {
	sessionSvc *service.SessionService
	phaseCtrl  *phase.Controller
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessionSvc *service.SessionService, phaseCtrl *phase.Controller) *SessionHandler {
	return &SessionHandler{
		sessionSvc: sessionSvc,
		phaseCtrl:  phaseCtrl,
	}
}

// Get handles GET /v1/sessions/{code}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	sess, err := h.sessionSvc.Get(r.Context(), code)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Delete handles DELETE /v1/sessions/{code}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	if !coordinatorOwns(r, code) {
		writeError(w, http.StatusForbidden, "token not valid for this session")
		return
	}
	if err := h.sessionSvc.Delete(r.Context(), code); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Join handles POST /v1/sessions/{code}/join.
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var req model.JoinRequest
	if r.Body != nil {
		// Nickname is optional; an empty body is a valid join.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	resp, err := h.sessionSvc.Join(r.Context(), code, req.Nickname)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Leave handles POST /v1/sessions/{code}/leave.
func (h *SessionHandler) Leave(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	participantID := middleware.GetParticipantID(r.Context())

	if err := h.sessionSvc.Leave(r.Context(), code, participantID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// ResultRequest is the request body for submitting a race result.
type ResultRequest struct {
	GameType model.GameType `json:"gameType"`
	Result   model.Result   `json:"result"`
}

// SubmitResult handles POST /v1/sessions/{code}/results. Results are
// write-once; resubmission after a terminal capture is silently ignored.
func (h *SessionHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	participantID := middleware.GetParticipantID(r.Context())

	var req ResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GameType != model.GameSprint && req.GameType != model.GameEndurance {
		writeError(w, http.StatusBadRequest, "unknown game type")
		return
	}

	if err := h.sessionSvc.RecordResult(r.Context(), code, participantID, req.GameType, req.Result); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// Rankings handles GET /v1/sessions/{code}/rankings?game=100m.
func (h *SessionHandler) Rankings(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	game := model.GameType(r.URL.Query().Get("game"))
	if game != model.GameSprint && game != model.GameEndurance {
		writeError(w, http.StatusBadRequest, "unknown game type")
		return
	}

	entries, err := h.sessionSvc.Rankings(r.Context(), code, game)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// BroadcastRequest is the request body for a coordinator announcement.
type BroadcastRequest struct {
	Text string `json:"text"`
}

// Broadcast handles POST /v1/sessions/{code}/broadcast.
func (h *SessionHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var req BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.sessionSvc.Broadcast(r.Context(), code, req.Text); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// StartGameRequest is the request body for launching a game.
type StartGameRequest struct {
	GameType model.GameType `json:"gameType"`
}

// StartGame handles POST /v1/sessions/{code}/game/start.
func (h *SessionHandler) StartGame(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var req StartGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.phaseCtrl.Start(r.Context(), code, req.GameType); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeStoreError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.GameStarted)})
}

// ResetGame handles POST /v1/sessions/{code}/game/reset.
func (h *SessionHandler) ResetGame(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	if err := h.phaseCtrl.Reset(r.Context(), code); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// ResetStudents handles POST /v1/sessions/{code}/students/reset.
func (h *SessionHandler) ResetStudents(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	if err := h.phaseCtrl.ResetRoster(r.Context(), code); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// coordinatorOwns checks that the coordinator token is bound to the session
// being mutated.
func coordinatorOwns(r *http.Request, code string) bool {
	return middleware.GetSessionCode(r.Context()) == code
}

// writeStoreError maps store errors onto user-actionable responses. NotFound
// permits a retry since the record may not have propagated yet;
// WriteRejected means this session is unrecoverable, not merely slow.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found, it may still be propagating; retry shortly")
	case errors.Is(err, store.ErrWriteRejected):
		writeError(w, http.StatusInsufficientStorage, "session storage rejected the write; create a new session")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
