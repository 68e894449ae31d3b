package race

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyminlab/running-game/internal/model"
)

// fixedStride makes the accumulated distance deterministic.
func fixedStride(eng *Endurance) { eng.stride = func() float64 { return 1.0 } }

// advanceToDeadline drives the race clock past the 10 second deadline tick by
// tick, stopping once the finishing tick has been processed.
func advanceToDeadline(t *testing.T, h *engineHarness, eng *Endurance) {
	t.Helper()
	maxTicks := int(enduranceDuration/clockResolution) + 10
	for i := 0; i < maxTicks && eng.State() != StateFinished; i++ {
		h.clock.BlockUntil(1)
		h.clock.Advance(clockResolution)
	}
	require.Eventually(t, func() bool { return eng.State() == StateFinished }, 2*time.Second, 10*time.Millisecond)
}

func TestEnduranceAccumulatesStrides(t *testing.T) {
	h := newEngineHarness()
	eng := NewEndurance(h.clock, h.rec, zerolog.Nop(), "ABC234", "student_aaaa1111", 0, h.callbacks())
	fixedStride(eng)

	eng.Start(context.Background())
	h.runCountdown(t)
	require.Equal(t, StateRunning, eng.State())
	assert.Equal(t, int(enduranceDuration/time.Second), eng.Remaining())

	for i := 0; i < 7; i++ {
		eng.Activate()
	}
	assert.InDelta(t, 7.0, eng.Distance(), 1e-9)
	eng.Stop()
}

func TestEnduranceStrideRange(t *testing.T) {
	h := newEngineHarness()
	eng := NewEndurance(h.clock, h.rec, zerolog.Nop(), "ABC234", "student_aaaa1111", 0, h.callbacks())

	for i := 0; i < 1000; i++ {
		step := eng.stride()
		require.GreaterOrEqual(t, step, 0.8)
		require.Less(t, step, 1.2)
	}
}

func TestEnduranceFinishesAtDeadline(t *testing.T) {
	h := newEngineHarness()
	eng := NewEndurance(h.clock, h.rec, zerolog.Nop(), "ABC234", "student_bbbb2222", 3, h.callbacks())
	fixedStride(eng)

	eng.Start(context.Background())
	h.runCountdown(t)
	for i := 0; i < 7; i++ {
		eng.Activate()
	}

	advanceToDeadline(t, h, eng)

	assert.Equal(t, 0, eng.Remaining())
	assert.InDelta(t, 7.0, eng.Distance(), 1e-9)

	require.Eventually(t, func() bool { return len(h.rec.all()) == 1 }, 2*time.Second, 10*time.Millisecond)
	records := h.rec.all()
	assert.Equal(t, "ABC234", records[0].code)
	assert.Equal(t, "student_bbbb2222", records[0].id)
	assert.Equal(t, model.GameEndurance, records[0].game)
	assert.InDelta(t, 7.0, records[0].result.Distance, 1e-9)
	assert.InDelta(t, enduranceDuration.Seconds(), records[0].result.Time, 1e-9)

	c := h.awaitCompletion(t)
	assert.Equal(t, model.GameEndurance, c.GameType)
	assert.InDelta(t, 7.0, c.Distance, 1e-9)
	assert.Equal(t, 3, c.Position)
}

func TestEnduranceDropsActivationsPastDeadline(t *testing.T) {
	h := newEngineHarness()
	eng := NewEndurance(h.clock, h.rec, zerolog.Nop(), "ABC234", "student_aaaa1111", 0, h.callbacks())
	fixedStride(eng)

	eng.Start(context.Background())
	h.runCountdown(t)
	for i := 0; i < 5; i++ {
		eng.Activate()
	}

	advanceToDeadline(t, h, eng)

	for i := 0; i < 20; i++ {
		eng.Activate()
	}
	assert.InDelta(t, 5.0, eng.Distance(), 1e-9)

	require.Eventually(t, func() bool { return len(h.rec.all()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.InDelta(t, 5.0, h.rec.all()[0].result.Distance, 1e-9)
}

func TestEnduranceRemainingCountsDown(t *testing.T) {
	h := newEngineHarness()
	eng := NewEndurance(h.clock, h.rec, zerolog.Nop(), "ABC234", "student_aaaa1111", 0, h.callbacks())
	fixedStride(eng)

	eng.Start(context.Background())
	h.runCountdown(t)

	ticksPerSecond := int(time.Second / clockResolution)
	for i := 0; i < ticksPerSecond; i++ {
		h.clock.BlockUntil(1)
		h.clock.Advance(clockResolution)
	}
	require.Eventually(t, func() bool { return eng.Remaining() == 9 }, 2*time.Second, 10*time.Millisecond)
	eng.Stop()
}

func TestEnduranceStopCancelsRace(t *testing.T) {
	h := newEngineHarness()
	eng := NewEndurance(h.clock, h.rec, zerolog.Nop(), "ABC234", "student_aaaa1111", 0, h.callbacks())
	fixedStride(eng)

	eng.Start(context.Background())
	h.runCountdown(t)
	eng.Stop()
	eng.Stop() // idempotent

	eng.Activate()
	assert.InDelta(t, 0.0, eng.Distance(), 1e-9)
	assert.Empty(t, h.rec.all())
}
