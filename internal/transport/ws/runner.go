package ws

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/skyminlab/running-game/internal/debounce"
	"github.com/skyminlab/running-game/internal/keymap"
	"github.com/skyminlab/running-game/internal/model"
	"github.com/skyminlab/running-game/internal/race"
	"github.com/skyminlab/running-game/internal/store"
)

// raceEngine is the surface shared by both race variants.
type raceEngine interface {
	Start(ctx context.Context)
	Activate()
	Stop()
	State() race.State
}

// RaceStatePayload is the live race display state pushed to a participant.
type RaceStatePayload struct {
	GameType  model.GameType `json:"gameType"`
	State     race.State     `json:"state"`
	Countdown int            `json:"countdown"`
	Distance  float64        `json:"distance"`
	Elapsed   float64        `json:"elapsed"`   // sprint only
	Remaining int            `json:"remaining"` // endurance only
}

// runner glues one participant connection to the core: it watches the
// session's phase, owns that participant's debouncer and race engine, and
// routes raw key signals through the anti-repeat filter into the engine.
// Engines only ever exist for participants whose slot has a mapped key; a
// participant at slot >= keymap.MaxPlayers can never start a race.
type runner struct {
	hub   *Hub
	store *store.SessionStore
	clock clockwork.Clock
	log   zerolog.Logger

	code          string
	participantID string
	conn          *Connection

	mu        sync.Mutex
	debouncer *debounce.Debouncer
	engine    raceEngine
	sprint    *race.Sprint
	endurance *race.Endurance
	gameType  model.GameType
	closed    bool
}

func newRunner(hub *Hub, st *store.SessionStore, clock clockwork.Clock, log zerolog.Logger, code, participantID string, conn *Connection) *runner {
	return &runner{
		hub:           hub,
		store:         st,
		clock:         clock,
		log:           log.With().Str("component", "runner").Str("code", code).Str("participant", participantID).Logger(),
		code:          code,
		participantID: participantID,
		conn:          conn,
	}
}

// sync reconciles the runner against the latest session snapshot: it pushes
// the snapshot to the client, starts an engine when the coordinator has
// launched a game, and tears the engine down when the phase resets. Called
// on connect and from every change signal.
func (r *runner) sync(ctx context.Context, sess *model.Session) {
	r.hub.SendTo(r.conn, MsgSessionSnapshot, sess)

	started := false

	r.mu.Lock()
	switch {
	case r.closed:
	case sess.GameState == nil || sess.GameState.Status != model.GameStarted:
		r.teardownLocked()
	default:
		phase := sess.GameState
		if r.engine != nil && r.gameType != phase.Type {
			r.teardownLocked()
		}
		if r.engine == nil {
			if p := sess.Participant(r.participantID); p != nil && p.Position != nil && !p.HasResult(phase.Type) {
				if key, ok := keymap.KeyForPosition(*p.Position); ok {
					r.startEngineLocked(ctx, phase.Type, *p.Position, key)
					started = r.engine != nil
				}
			}
		}
	}
	r.mu.Unlock()

	if started {
		r.pushRaceState()
	}
}

func (r *runner) startEngineLocked(ctx context.Context, game model.GameType, position int, key string) {
	cb := race.Callbacks{
		OnUpdate:   r.pushRaceState,
		OnComplete: r.pushCompletion,
	}

	switch game {
	case model.GameSprint:
		r.sprint = race.NewSprint(r.clock, r.store, r.log, r.code, r.participantID, position, cb)
		r.engine = r.sprint
	case model.GameEndurance:
		r.endurance = race.NewEndurance(r.clock, r.store, r.log, r.code, r.participantID, position, cb)
		r.engine = r.endurance
	default:
		r.log.Warn().Str("game", string(game)).Msg("unknown game type in phase")
		return
	}
	r.gameType = game

	r.debouncer = debounce.New(r.clock)
	engine := r.engine
	r.debouncer.OnKey(key, func(string) {
		engine.Activate()
	})

	r.engine.Start(ctx)
	r.log.Info().Str("game", string(game)).Int("position", position).Str("key", key).Msg("race engine started")
}

// KeyDown feeds a raw press into the debouncer.
func (r *runner) KeyDown(key string) {
	r.mu.Lock()
	d := r.debouncer
	r.mu.Unlock()
	if d != nil {
		d.KeyDown(key)
	}
}

// KeyUp feeds a raw release into the debouncer.
func (r *runner) KeyUp(key string) {
	r.mu.Lock()
	d := r.debouncer
	r.mu.Unlock()
	if d != nil {
		d.KeyUp(key)
	}
}

func (r *runner) pushRaceState() {
	r.mu.Lock()
	var payload RaceStatePayload
	switch {
	case r.sprint != nil:
		payload = RaceStatePayload{
			GameType:  model.GameSprint,
			State:     r.sprint.State(),
			Countdown: r.sprint.Countdown(),
			Distance:  float64(r.sprint.Distance()),
			Elapsed:   r.sprint.Elapsed(),
		}
	case r.endurance != nil:
		payload = RaceStatePayload{
			GameType:  model.GameEndurance,
			State:     r.endurance.State(),
			Countdown: r.endurance.Countdown(),
			Distance:  r.endurance.Distance(),
			Remaining: r.endurance.Remaining(),
		}
	default:
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.hub.SendTo(r.conn, MsgRaceState, payload)
}

func (r *runner) pushCompletion(c race.Completion) {
	r.hub.SendTo(r.conn, MsgRaceFinished, c)
	r.hub.SendToCoordinator(r.code, MsgRaceFinished, map[string]interface{}{
		"participantId": r.participantID,
		"completion":    c,
	})
}

func (r *runner) teardownLocked() {
	if r.engine != nil {
		r.engine.Stop()
		r.engine = nil
		r.sprint = nil
		r.endurance = nil
	}
	if r.debouncer != nil {
		r.debouncer.Close()
		r.debouncer = nil
	}
}

// Close stops the engine and debouncer; timers must not outlive the
// connection that owns them.
func (r *runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.teardownLocked()
}
