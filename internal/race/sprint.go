package race

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/skyminlab/running-game/internal/model"
)

// Sprint is the fixed-distance variant: the first 100 accepted activations
// finish the race and the elapsed time is the result.
type Sprint struct {
	clock    clockwork.Clock
	recorder ResultRecorder
	log      zerolog.Logger
	cb       Callbacks

	code          string
	participantID string
	position      int

	mu        sync.Mutex
	ctx       context.Context
	state     State
	countdown int
	distance  int
	startedAt time.Time
	finalTime float64
	started   bool
	stopped   bool
	stop      chan struct{}
}

// NewSprint creates a sprint engine for one participant's track slot.
func NewSprint(clock clockwork.Clock, recorder ResultRecorder, log zerolog.Logger, code, participantID string, position int, cb Callbacks) *Sprint {
	return &Sprint{
		clock:         clock,
		recorder:      recorder,
		log:           log.With().Str("component", "race").Str("game", string(model.GameSprint)).Str("participant", participantID).Logger(),
		cb:            cb,
		code:          code,
		participantID: participantID,
		position:      position,
		state:         StateCountdown,
		countdown:     countdownSeconds,
		stop:          make(chan struct{}),
	}
}

// Start begins the countdown. Calling Start twice is a no-op.
func (e *Sprint) Start(ctx context.Context) {
	e.mu.Lock()
	if e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.ctx = ctx
	e.mu.Unlock()

	go e.runCountdown(ctx)
}

func (e *Sprint) runCountdown(ctx context.Context) {
	for i := countdownSeconds; i > 0; i-- {
		if !sleep(ctx, e.clock, time.Second, e.stop) {
			return
		}
		e.mu.Lock()
		e.countdown = i - 1
		if i == 1 {
			e.state = StateRunning
			e.startedAt = e.clock.Now()
		}
		e.mu.Unlock()
		e.cb.update()
	}
}

// Activate consumes one debounced key activation. While running it advances
// the participant one unit; reaching the target finishes the race exactly
// once, with later activations ignored.
func (e *Sprint) Activate() {
	e.mu.Lock()
	if e.state != StateRunning || e.stopped {
		e.mu.Unlock()
		return
	}

	e.distance++
	if e.distance < sprintTarget {
		e.mu.Unlock()
		e.cb.update()
		return
	}

	e.state = StateFinished
	e.finalTime = e.clock.Now().Sub(e.startedAt).Seconds()
	elapsed := e.finalTime
	ctx := e.ctx
	e.mu.Unlock()
	e.cb.update()

	// The result write may fail; the race still finishes cleanly and the
	// completion is still handed off.
	result := model.Result{Time: elapsed, Distance: sprintTarget}
	if err := e.recorder.RecordResult(ctx, e.code, e.participantID, model.GameSprint, result); err != nil {
		e.log.Error().Err(err).Msg("persist sprint result failed")
	}
	e.log.Info().Float64("time", elapsed).Msg("sprint finished")

	go e.handoff(ctx, Completion{
		GameType: model.GameSprint,
		Distance: sprintTarget,
		Time:     elapsed,
		Position: e.position,
	})
}

func (e *Sprint) handoff(ctx context.Context, c Completion) {
	if !sleep(ctx, e.clock, handoffDelay, e.stop) {
		return
	}
	e.cb.complete(c)
}

// Stop cancels every pending timer. Idempotent.
func (e *Sprint) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.stopped = true
	close(e.stop)
}

// State returns the current lifecycle value.
func (e *Sprint) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Countdown returns the remaining countdown value; 0 means "Go".
func (e *Sprint) Countdown() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.countdown
}

// Distance returns the accumulated distance in units.
func (e *Sprint) Distance() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.distance
}

// Elapsed returns the live elapsed time while running and the captured time
// once finished. Derived for display, never persisted itself.
func (e *Sprint) Elapsed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateRunning:
		return e.clock.Now().Sub(e.startedAt).Seconds()
	case StateFinished:
		return e.finalTime
	default:
		return 0
	}
}
