package model

import "github.com/golang-jwt/jwt/v5"

// CoordinatorClaims are JWT claims for the coordinator (teacher) token,
// bound to the session it created.
type CoordinatorClaims struct {
	CoordinatorID string `json:"coordinatorId"`
	SessionCode   string `json:"sessionCode"`
	jwt.RegisteredClaims
}

// ParticipantClaims are JWT claims for a participant's session-scoped
// identity token.
type ParticipantClaims struct {
	SessionCode   string `json:"sessionCode"`
	ParticipantID string `json:"participantId"`
	Nickname      string `json:"nickname,omitempty"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for coordinator login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful coordinator login. Creating the
// coordinator identity also creates the session the token is bound to.
type LoginResponse struct {
	Token         string `json:"token"`
	CoordinatorID string `json:"coordinatorId"`
	SessionCode   string `json:"sessionCode"`
}

// JoinRequest is the request body for a participant joining a session.
type JoinRequest struct {
	Nickname string `json:"nickname,omitempty"`
}

// JoinResponse is returned when a participant joins a session.
type JoinResponse struct {
	ParticipantID string   `json:"participantId"`
	Name          string   `json:"name"`
	Position      *int     `json:"position"`
	Token         string   `json:"token"`
	Session       *Session `json:"session"`
}
