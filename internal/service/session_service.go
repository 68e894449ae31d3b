// Package service orchestrates the session lifecycle commands invoked by the
// transport layer.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/skyminlab/running-game/internal/accesscode"
	"github.com/skyminlab/running-game/internal/archive"
	"github.com/skyminlab/running-game/internal/auth"
	"github.com/skyminlab/running-game/internal/model"
	"github.com/skyminlab/running-game/internal/rank"
	"github.com/skyminlab/running-game/internal/store"
)

// SessionService handles session creation, membership and results.
type SessionService struct {
	store   *store.SessionStore
	authSvc *auth.Service
	archive archive.Archive
	clock   clockwork.Clock
	log     zerolog.Logger
}

// NewSessionService creates a session service.
func NewSessionService(st *store.SessionStore, authSvc *auth.Service, arch archive.Archive, clock clockwork.Clock, log zerolog.Logger) *SessionService {
	return &SessionService{
		store:   st,
		authSvc: authSvc,
		archive: arch,
		clock:   clock,
		log:     log.With().Str("component", "service").Logger(),
	}
}

// Login authenticates the coordinator, creates a fresh session and returns
// a token bound to its code. Codes are not deduplicated against earlier
// sessions; a collision with a stale entry overwrites it.
func (s *SessionService) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	if err := s.authSvc.Authenticate(username, password); err != nil {
		return nil, err
	}

	code, err := accesscode.New()
	if err != nil {
		return nil, fmt.Errorf("generate access code: %w", err)
	}
	if _, err := s.store.Create(ctx, code); err != nil {
		return nil, err
	}

	token, coordinatorID, err := s.authSvc.GenerateCoordinatorToken(code)
	if err != nil {
		return nil, fmt.Errorf("generate coordinator token: %w", err)
	}

	return &model.LoginResponse{
		Token:         token,
		CoordinatorID: coordinatorID,
		SessionCode:   code,
	}, nil
}

// Get returns the current session snapshot.
func (s *SessionService) Get(ctx context.Context, code string) (*model.Session, error) {
	return s.store.Get(ctx, code)
}

// Join adds a participant to the session and issues their identity token.
// Without a nickname the name defaults to one derived from the id suffix.
func (s *SessionService) Join(ctx context.Context, code, nickname string) (*model.JoinResponse, error) {
	sess, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	participantID := "student_" + uuid.New().String()[:8]
	p, err := s.store.AddOrUpdateParticipant(ctx, sess.Code, participantID, nickname)
	if err != nil {
		return nil, err
	}

	token, err := s.authSvc.GenerateParticipantToken(sess.Code, participantID, p.Name)
	if err != nil {
		return nil, fmt.Errorf("generate participant token: %w", err)
	}

	sess, err = s.store.Get(ctx, sess.Code)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("code", sess.Code).Str("participant", participantID).Str("name", p.Name).Msg("participant joined")
	return &model.JoinResponse{
		ParticipantID: participantID,
		Name:          p.Name,
		Position:      p.Position,
		Token:         token,
		Session:       sess,
	}, nil
}

// Leave removes a participant from the roster.
func (s *SessionService) Leave(ctx context.Context, code, participantID string) error {
	return s.store.RemoveParticipant(ctx, code, participantID)
}

// RecordResult captures a participant's terminal result (write-once).
func (s *SessionService) RecordResult(ctx context.Context, code, participantID string, game model.GameType, result model.Result) error {
	return s.store.RecordResult(ctx, code, participantID, game, result)
}

// Broadcast stores a coordinator announcement.
func (s *SessionService) Broadcast(ctx context.Context, code, text string) error {
	return s.store.SetBroadcast(ctx, code, text)
}

// Rankings computes current standings for a game type from the latest
// snapshot.
func (s *SessionService) Rankings(ctx context.Context, code string, game model.GameType) ([]rank.Entry, error) {
	sess, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	return rank.Rank(sess, game), nil
}

// Delete archives the session's final standings and removes the record.
// Archive failures do not block the delete; losing an archive beats keeping
// a session the coordinator asked to remove.
func (s *SessionService) Delete(ctx context.Context, code string) error {
	sess, err := s.store.Get(ctx, code)
	if err != nil {
		return err
	}

	if s.archive != nil {
		if err := s.archive.Save(ctx, archive.FromSession(sess, s.clock.Now())); err != nil {
			s.log.Error().Str("code", sess.Code).Err(err).Msg("archive session failed")
		}
	}
	return s.store.Delete(ctx, sess.Code)
}
