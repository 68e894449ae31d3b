// Package auth issues and validates the identity tokens carried by clients
// across screens: a coordinator token bound to the session it created and a
// participant token scoped to one session.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/skyminlab/running-game/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// tokenTTL bounds participant tokens to the length of a grading session.
const tokenTTL = 24 * time.Hour

// Service handles coordinator and participant authentication.
type Service struct {
	username  string
	password  string
	jwtSecret []byte
}

// NewService creates an auth service with the shared coordinator credentials.
func NewService(username, password, jwtSecret string) *Service {
	return &Service{
		username:  username,
		password:  password,
		jwtSecret: []byte(jwtSecret),
	}
}

// Authenticate checks the coordinator credentials.
func (s *Service) Authenticate(username, password string) error {
	if username != s.username || password != s.password {
		return ErrInvalidCredentials
	}
	return nil
}

// GenerateCoordinatorToken issues a coordinator token bound to a session
// code, returning the token and the assigned coordinator id.
func (s *Service) GenerateCoordinatorToken(sessionCode string) (token, coordinatorID string, err error) {
	coordinatorID = "teacher_" + uuid.New().String()[:8]

	claims := &model.CoordinatorClaims{
		CoordinatorID: coordinatorID,
		SessionCode:   sessionCode,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	return token, coordinatorID, err
}

// ValidateCoordinatorToken validates a coordinator JWT and returns claims.
func (s *Service) ValidateCoordinatorToken(tokenString string) (*model.CoordinatorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.CoordinatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.CoordinatorClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateParticipantToken creates a session-scoped identity token.
func (s *Service) GenerateParticipantToken(sessionCode, participantID, nickname string) (string, error) {
	claims := &model.ParticipantClaims{
		SessionCode:   sessionCode,
		ParticipantID: participantID,
		Nickname:      nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// ValidateParticipantToken validates a participant JWT and returns claims.
func (s *Service) ValidateParticipantToken(tokenString string) (*model.ParticipantClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.ParticipantClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.ParticipantClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
