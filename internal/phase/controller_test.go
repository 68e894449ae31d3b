package phase

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyminlab/running-game/internal/model"
	"github.com/skyminlab/running-game/internal/store"
)

func newTestController(t *testing.T) (*Controller, *store.SessionStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	st := store.New(client, clockwork.NewFakeClock(), zerolog.Nop())
	return NewController(st, zerolog.Nop()), st
}

func TestStartSetsPhaseAndAnnounces(t *testing.T) {
	ctrl, st := newTestController(t)
	ctx := context.Background()

	_, err := st.Create(ctx, "ABC234")
	require.NoError(t, err)

	require.NoError(t, ctrl.Start(ctx, "ABC234", model.GameSprint))

	sess, err := st.Get(ctx, "ABC234")
	require.NoError(t, err)
	require.NotNil(t, sess.GameState)
	assert.Equal(t, model.GameSprint, sess.GameState.Type)
	assert.Equal(t, model.GameStarted, sess.GameState.Status)
	require.NotNil(t, sess.Broadcast)
	assert.Equal(t, "Game started: 100m dash!", sess.Broadcast.Text)
}

func TestStartEnduranceAnnouncement(t *testing.T) {
	ctrl, st := newTestController(t)
	ctx := context.Background()

	_, err := st.Create(ctx, "ABC234")
	require.NoError(t, err)

	require.NoError(t, ctrl.Start(ctx, "ABC234", model.GameEndurance))

	sess, err := st.Get(ctx, "ABC234")
	require.NoError(t, err)
	assert.Equal(t, "Game started: 10 second run!", sess.Broadcast.Text)
}

func TestStartRejectsUnknownGame(t *testing.T) {
	ctrl, st := newTestController(t)
	ctx := context.Background()

	_, err := st.Create(ctx, "ABC234")
	require.NoError(t, err)

	assert.Error(t, ctrl.Start(ctx, "ABC234", model.GameType("marathon")))
}

func TestResetClearsPhaseKeepsRoster(t *testing.T) {
	ctrl, st := newTestController(t)
	ctx := context.Background()

	_, err := st.Create(ctx, "ABC234")
	require.NoError(t, err)
	_, err = st.AddOrUpdateParticipant(ctx, "ABC234", "student_aaaa1111", "")
	require.NoError(t, err)
	require.NoError(t, st.RecordResult(ctx, "ABC234", "student_aaaa1111", model.GameSprint, model.Result{Time: 12.5, Distance: 100}))
	require.NoError(t, ctrl.Start(ctx, "ABC234", model.GameSprint))

	require.NoError(t, ctrl.Reset(ctx, "ABC234"))

	sess, err := st.Get(ctx, "ABC234")
	require.NoError(t, err)
	assert.Nil(t, sess.GameState)
	require.Len(t, sess.Students, 1)
	assert.Contains(t, sess.Students[0].Results, model.GameSprint, "results survive a phase reset")
	require.NotNil(t, sess.Broadcast)
	assert.Equal(t, "Game reset. Return to the game selection screen.", sess.Broadcast.Text)
}

func TestResetRosterWipesStudents(t *testing.T) {
	ctrl, st := newTestController(t)
	ctx := context.Background()

	_, err := st.Create(ctx, "ABC234")
	require.NoError(t, err)
	for _, id := range []string{"student_aaaa1111", "student_bbbb2222"} {
		_, err = st.AddOrUpdateParticipant(ctx, "ABC234", id, "")
		require.NoError(t, err)
	}

	require.NoError(t, ctrl.ResetRoster(ctx, "ABC234"))

	sess, err := st.Get(ctx, "ABC234")
	require.NoError(t, err)
	assert.Empty(t, sess.Students)
	assert.Nil(t, sess.GameState)
}

func TestResetRosterMissingSession(t *testing.T) {
	ctrl, _ := newTestController(t)
	assert.ErrorIs(t, ctrl.ResetRoster(context.Background(), "ZZZZZZ"), store.ErrNotFound)
}
