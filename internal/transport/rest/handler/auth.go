package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/skyminlab/running-game/internal/auth"
	"github.com/skyminlab/running-game/internal/model"
	"github.com/skyminlab/running-game/internal/service"
)

// AuthHandler handles coordinator authentication.
type AuthHandler struct {
	sessionSvc *service.SessionService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(sessionSvc *service.SessionService) *AuthHandler {
	return &AuthHandler{sessionSvc: sessionSvc}
}

// Login handles POST /v1/auth/login. A successful login creates the
// coordinator's session and binds the returned token to its access code.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.sessionSvc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		// Bad credentials are the caller's mistake; a failed session create
		// is not, and its storage verdict must reach the coordinator.
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
