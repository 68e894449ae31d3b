package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	svc := NewService("teacher", "password123", "secret")

	assert.NoError(t, svc.Authenticate("teacher", "password123"))
	assert.ErrorIs(t, svc.Authenticate("teacher", "nope"), ErrInvalidCredentials)
	assert.ErrorIs(t, svc.Authenticate("admin", "password123"), ErrInvalidCredentials)
}

func TestCoordinatorTokenRoundTrip(t *testing.T) {
	svc := NewService("teacher", "password123", "secret")

	token, coordinatorID, err := svc.GenerateCoordinatorToken("ABC234")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(coordinatorID, "teacher_"))

	claims, err := svc.ValidateCoordinatorToken(token)
	require.NoError(t, err)
	assert.Equal(t, coordinatorID, claims.CoordinatorID)
	assert.Equal(t, "ABC234", claims.SessionCode)
}

func TestParticipantTokenRoundTrip(t *testing.T) {
	svc := NewService("teacher", "password123", "secret")

	token, err := svc.GenerateParticipantToken("ABC234", "student_aaaa1111", "Alice")
	require.NoError(t, err)

	claims, err := svc.ValidateParticipantToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ABC234", claims.SessionCode)
	assert.Equal(t, "student_aaaa1111", claims.ParticipantID)
	assert.Equal(t, "Alice", claims.Nickname)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewService("teacher", "password123", "secret-a")
	verifier := NewService("teacher", "password123", "secret-b")

	token, _, err := issuer.GenerateCoordinatorToken("ABC234")
	require.NoError(t, err)

	_, err = verifier.ValidateCoordinatorToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = verifier.ValidateCoordinatorToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
