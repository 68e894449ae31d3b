package store

import (
	"context"
	"fmt"

	"github.com/skyminlab/running-game/internal/model"
)

// AddOrUpdateParticipant upserts a roster entry. A participant without a
// track slot is assigned the first unoccupied one, scanning from 0; when all
// MaxSlots slots are taken the position stays unset and the participant
// cannot race. An empty name defaults to one derived from the id suffix.
func (s *SessionStore) AddOrUpdateParticipant(ctx context.Context, code, id, name string) (*model.Participant, error) {
	var out model.Participant

	err := s.Update(ctx, code, func(sess *model.Session) {
		now := s.clock.Now()

		if name == "" {
			name = DefaultName(id)
		}

		existing := sess.Participant(id)
		if existing != nil {
			existing.Name = name
			existing.LastUpdate = now
			if existing.Position == nil {
				existing.Position = firstFreeSlot(sess.Students)
			}
			out = *existing
			return
		}

		p := model.Participant{
			ID:          id,
			Name:        name,
			Position:    firstFreeSlot(sess.Students),
			ConnectedAt: now,
			LastUpdate:  now,
		}
		sess.Students = append(sess.Students, p)
		out = p
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveParticipant drops a roster entry. Removing an unknown id is a no-op.
func (s *SessionStore) RemoveParticipant(ctx context.Context, code, id string) error {
	return s.Update(ctx, code, func(sess *model.Session) {
		students := sess.Students[:0]
		for _, p := range sess.Students {
			if p.ID != id {
				students = append(students, p)
			}
		}
		sess.Students = students
	})
}

// RecordResult captures a terminal result for the participant in the given
// game type. First capture wins: if a result already exists the call is a
// no-op, so late or repeated finish events can never overwrite a standing.
func (s *SessionStore) RecordResult(ctx context.Context, code, id string, game model.GameType, result model.Result) error {
	var missing bool

	err := s.Update(ctx, code, func(sess *model.Session) {
		p := sess.Participant(id)
		if p == nil {
			missing = true
			return
		}
		if p.HasResult(game) {
			return
		}
		if p.Results == nil {
			p.Results = make(map[model.GameType]model.Result)
		}
		p.Results[game] = result
		p.LastUpdate = s.clock.Now()
	})
	if err != nil {
		return err
	}
	if missing {
		return fmt.Errorf("record result for %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetBroadcast stores the latest coordinator announcement.
func (s *SessionStore) SetBroadcast(ctx context.Context, code, text string) error {
	return s.Update(ctx, code, func(sess *model.Session) {
		sess.Broadcast = &model.Broadcast{Text: text, Timestamp: s.clock.Now()}
	})
}

// SetPhase stores the session's game phase. A nil phase clears it back to
// the implicit "not started" state.
func (s *SessionStore) SetPhase(ctx context.Context, code string, phase *model.GamePhase) error {
	return s.Update(ctx, code, func(sess *model.Session) {
		sess.GameState = phase
	})
}

// DefaultName derives a placeholder display name from a participant id.
func DefaultName(id string) string {
	suffix := id
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return "Student " + suffix
}

// firstFreeSlot returns the smallest slot in [0, MaxSlots) not occupied by
// any roster entry, or nil when the track is full.
func firstFreeSlot(students []model.Participant) *int {
	taken := make(map[int]bool, len(students))
	for _, p := range students {
		if p.Position != nil {
			taken[*p.Position] = true
		}
	}
	for slot := 0; slot < model.MaxSlots; slot++ {
		if !taken[slot] {
			return &slot
		}
	}
	return nil
}
