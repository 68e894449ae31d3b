// Package phase transitions a session's race lifecycle. The controller is the
// sole writer of the gameState sub-state; participants only ever read it.
package phase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/skyminlab/running-game/internal/model"
	"github.com/skyminlab/running-game/internal/store"
)

// Controller performs coordinator-only phase transitions.
type Controller struct {
	store *store.SessionStore
	log   zerolog.Logger
}

// NewController creates a phase controller over the session store.
func NewController(st *store.SessionStore, log zerolog.Logger) *Controller {
	return &Controller{
		store: st,
		log:   log.With().Str("component", "phase").Logger(),
	}
}

// Start launches a game of the given type and announces it to the session.
func (c *Controller) Start(ctx context.Context, code string, game model.GameType) error {
	if game != model.GameSprint && game != model.GameEndurance {
		return fmt.Errorf("unknown game type %q", game)
	}

	if err := c.store.SetPhase(ctx, code, &model.GamePhase{Type: game, Status: model.GameStarted}); err != nil {
		return err
	}
	if err := c.store.SetBroadcast(ctx, code, startAnnouncement(game)); err != nil {
		return err
	}

	c.log.Info().Str("code", code).Str("game", string(game)).Msg("game started")
	return nil
}

// Reset clears the game phase back to "not started" and announces the reset.
// Rosters and captured results are untouched.
func (c *Controller) Reset(ctx context.Context, code string) error {
	if err := c.store.SetPhase(ctx, code, nil); err != nil {
		return err
	}
	if err := c.store.SetBroadcast(ctx, code, "Game reset. Return to the game selection screen."); err != nil {
		return err
	}

	c.log.Info().Str("code", code).Msg("game reset")
	return nil
}

// ResetRoster removes every participant and reinitializes an empty session
// under the same code. Distinct from Reset: this wipes students and their
// results.
func (c *Controller) ResetRoster(ctx context.Context, code string) error {
	sess, err := c.store.Get(ctx, code)
	if err != nil {
		return err
	}

	for _, p := range sess.Students {
		if err := c.store.RemoveParticipant(ctx, code, p.ID); err != nil {
			return fmt.Errorf("remove participant %s: %w", p.ID, err)
		}
	}
	if _, err := c.store.Create(ctx, code); err != nil {
		return err
	}

	c.log.Info().Str("code", code).Int("removed", len(sess.Students)).Msg("roster reset")
	return nil
}

func startAnnouncement(game model.GameType) string {
	switch game {
	case model.GameSprint:
		return "Game started: 100m dash!"
	default:
		return "Game started: 10 second run!"
	}
}
