package race

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/skyminlab/running-game/internal/model"
)

// Endurance is the fixed-time variant: activations accumulate randomized
// stride lengths for 10 seconds and the covered distance is the result.
type Endurance struct {
	clock    clockwork.Clock
	recorder ResultRecorder
	log      zerolog.Logger
	cb       Callbacks

	code          string
	participantID string
	position      int

	// stride draws one step length in [0.8, 1.2), modelling stride
	// variance with an independent draw per activation.
	stride func() float64

	mu        sync.Mutex
	ctx       context.Context
	state     State
	countdown int
	distance  float64
	startedAt time.Time
	endAt     time.Time
	remaining int
	finished  bool
	started   bool
	stopped   bool
	stop      chan struct{}
}

// NewEndurance creates an endurance engine for one participant's track slot.
func NewEndurance(clock clockwork.Clock, recorder ResultRecorder, log zerolog.Logger, code, participantID string, position int, cb Callbacks) *Endurance {
	return &Endurance{
		clock:         clock,
		recorder:      recorder,
		log:           log.With().Str("component", "race").Str("game", string(model.GameEndurance)).Str("participant", participantID).Logger(),
		cb:            cb,
		code:          code,
		participantID: participantID,
		position:      position,
		stride:        func() float64 { return 0.8 + rand.Float64()*0.4 },
		state:         StateCountdown,
		countdown:     countdownSeconds,
		remaining:     int(enduranceDuration / time.Second),
		stop:          make(chan struct{}),
	}
}

// Start begins the countdown. Calling Start twice is a no-op.
func (e *Endurance) Start(ctx context.Context) {
	e.mu.Lock()
	if e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.ctx = ctx
	e.mu.Unlock()

	go e.run(ctx)
}

func (e *Endurance) run(ctx context.Context) {
	for i := countdownSeconds; i > 0; i-- {
		if !sleep(ctx, e.clock, time.Second, e.stop) {
			return
		}
		e.mu.Lock()
		e.countdown = i - 1
		if i == 1 {
			e.state = StateRunning
			e.startedAt = e.clock.Now()
			e.endAt = e.startedAt.Add(enduranceDuration)
		}
		e.mu.Unlock()
		e.cb.update()
	}

	ticker := e.clock.NewTicker(clockResolution)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if e.tick(ctx) {
				return
			}
		}
	}
}

// tick samples the race clock, updates the displayed remaining time and
// finishes the race once the deadline passes. Returns true when done.
func (e *Endurance) tick(ctx context.Context) bool {
	e.mu.Lock()
	now := e.clock.Now()
	remaining := int(math.Ceil(e.endAt.Sub(now).Seconds()))
	if remaining < 0 {
		remaining = 0
	}
	changed := remaining != e.remaining
	e.remaining = remaining

	if remaining > 0 || e.finished {
		e.mu.Unlock()
		if changed {
			e.cb.update()
		}
		return e.finished
	}

	// Deadline reached: capture the distance accumulated at this instant.
	e.finished = true
	e.state = StateFinished
	final := e.distance
	e.mu.Unlock()
	e.cb.update()

	result := model.Result{Distance: final, Time: enduranceDuration.Seconds()}
	if err := e.recorder.RecordResult(ctx, e.code, e.participantID, model.GameEndurance, result); err != nil {
		e.log.Error().Err(err).Msg("persist endurance result failed")
	}
	e.log.Info().Float64("distance", final).Msg("endurance finished")

	go e.handoff(ctx, Completion{
		GameType: model.GameEndurance,
		Distance: final,
		Time:     enduranceDuration.Seconds(),
		Position: e.position,
	})
	return true
}

// Activate consumes one debounced key activation, adding one stride while
// the race runs. Activations at or past the deadline are dropped even if the
// finishing tick has not fired yet.
func (e *Endurance) Activate() {
	e.mu.Lock()
	if e.state != StateRunning || e.stopped || e.finished || !e.clock.Now().Before(e.endAt) {
		e.mu.Unlock()
		return
	}
	e.distance += e.stride()
	e.mu.Unlock()
	e.cb.update()
}

func (e *Endurance) handoff(ctx context.Context, c Completion) {
	if !sleep(ctx, e.clock, handoffDelay, e.stop) {
		return
	}
	e.cb.complete(c)
}

// Stop cancels every pending timer. Idempotent.
func (e *Endurance) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.stopped = true
	close(e.stop)
}

// State returns the current lifecycle value.
func (e *Endurance) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Countdown returns the remaining countdown value; 0 means "Go".
func (e *Endurance) Countdown() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.countdown
}

// Distance returns the accumulated distance in meters.
func (e *Endurance) Distance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.distance
}

// Remaining returns the displayed remaining whole seconds.
func (e *Endurance) Remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remaining
}
