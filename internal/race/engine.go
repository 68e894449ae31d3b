// Package race runs the per-participant race state machines. Both variants
// move Countdown -> Running -> Finished on an injected clock so the timing
// behavior is testable without wall-clock waits. Engines consume debounced
// activations and persist exactly one terminal result; every timer they own
// is cancelled on Stop so no orphaned callback can mutate a race that is no
// longer displayed.
package race

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/skyminlab/running-game/internal/model"
)

// State is the lifecycle value of a running engine.
type State string

const (
	StateCountdown State = "countdown"
	StateRunning   State = "running"
	StateFinished  State = "finished"
)

const (
	// sprintTarget is the distance in units that ends the sprint game.
	sprintTarget = 100

	// enduranceDuration is the fixed length of the endurance game.
	enduranceDuration = 10 * time.Second

	// countdownSeconds counts 3, 2, 1 before "Go".
	countdownSeconds = 3

	// clockResolution samples the endurance clock for the remaining-time
	// display.
	clockResolution = 100 * time.Millisecond

	// handoffDelay keeps the finish on screen before completion is handed
	// to the caller.
	handoffDelay = 2 * time.Second
)

// Completion carries a finished race to the phase-consuming caller.
type Completion struct {
	GameType model.GameType `json:"gameType"`
	Distance float64        `json:"distance"`
	Time     float64        `json:"time"`
	Position int            `json:"position"`
}

// ResultRecorder persists a participant's terminal result. Satisfied by
// *store.SessionStore.
type ResultRecorder interface {
	RecordResult(ctx context.Context, code, id string, game model.GameType, result model.Result) error
}

// Callbacks notify the caller of engine progress. Either field may be nil.
type Callbacks struct {
	// OnUpdate fires whenever displayed state changes: countdown ticks,
	// accepted activations, clock ticks, the finish.
	OnUpdate func()

	// OnComplete fires once, handoffDelay after the finish.
	OnComplete func(Completion)
}

func (cb Callbacks) update() {
	if cb.OnUpdate != nil {
		cb.OnUpdate()
	}
}

func (cb Callbacks) complete(c Completion) {
	if cb.OnComplete != nil {
		cb.OnComplete(c)
	}
}

// stopAndDrain stops a timer and drains its channel so a fired-but-unread
// timer cannot leak a value to a later select.
func stopAndDrain(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}

// sleep waits one interval on the engine's clock, returning false if the
// engine was stopped or the context cancelled first.
func sleep(ctx context.Context, clock clockwork.Clock, d time.Duration, stop <-chan struct{}) bool {
	t := clock.NewTimer(d)
	select {
	case <-t.Chan():
		return true
	case <-stop:
		stopAndDrain(t)
		return false
	case <-ctx.Done():
		stopAndDrain(t)
		return false
	}
}
