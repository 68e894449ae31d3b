package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyminlab/running-game/internal/model"
)

func newTestStore(t *testing.T) (*SessionStore, *miniredis.Miniredis, *clockwork.FakeClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	clock := clockwork.NewFakeClock()
	return New(client, clock, zerolog.Nop()), mr, clock
}

func TestCreateRoundTrip(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "abc234")
	require.NoError(t, err)
	assert.Equal(t, "ABC234", created.Code)

	got, err := s.Get(ctx, "ABC234")
	require.NoError(t, err)
	assert.Equal(t, "ABC234", got.Code)
	assert.Empty(t, got.Students)
	assert.Nil(t, got.GameState)
}

func TestGetNormalizesCaller(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "ABC234")
	require.NoError(t, err)

	got, err := s.Get(ctx, "  abc234 ")
	require.NoError(t, err)
	assert.Equal(t, "ABC234", got.Code)
}

func TestGetScanFallback(t *testing.T) {
	s, mr, _ := newTestStore(t)
	ctx := context.Background()

	// A record written under a differently-normalized key is still found.
	data, err := json.Marshal(&model.Session{Code: "XYZ789"})
	require.NoError(t, err)
	mr.Set("session:xyz789", string(data))

	got, err := s.Get(ctx, "xyz789")
	require.NoError(t, err)
	assert.Equal(t, "XYZ789", got.Code)
}

func TestGetNotFound(t *testing.T) {
	s, _, _ := newTestStore(t)

	_, err := s.Get(context.Background(), "NOPE22")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMalformedRecordTreatedAsMissing(t *testing.T) {
	s, mr, _ := newTestStore(t)

	mr.Set(SessionKey("BAD234"), "{not json")
	_, err := s.Get(context.Background(), "BAD234")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStampsLastUpdateAndBumpsMarker(t *testing.T) {
	s, _, clock := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "ABC234")
	require.NoError(t, err)

	before, err := s.Marker(ctx, "ABC234")
	require.NoError(t, err)

	clock.Advance(3 * time.Second)
	require.NoError(t, s.SetBroadcast(ctx, "ABC234", "hello"))

	after, err := s.Marker(ctx, "ABC234")
	require.NoError(t, err)
	assert.Greater(t, after, before, "every committed write bumps the marker")

	got, err := s.Get(ctx, "ABC234")
	require.NoError(t, err)
	assert.True(t, got.LastUpdate.Equal(clock.Now()), "LastUpdate stamped at write time")
	require.NotNil(t, got.Broadcast)
	assert.Equal(t, "hello", got.Broadcast.Text)
}

func TestUpdateMissingSession(t *testing.T) {
	s, _, _ := newTestStore(t)

	err := s.Update(context.Background(), "NOPE22", func(*model.Session) {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemovesRecordAndMarker(t *testing.T) {
	s, mr, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "ABC234")
	require.NoError(t, err)
	require.True(t, mr.Exists(MarkerKey("ABC234")))

	require.NoError(t, s.Delete(ctx, "ABC234"))
	assert.False(t, mr.Exists(SessionKey("ABC234")))
	assert.False(t, mr.Exists(MarkerKey("ABC234")))

	_, err = s.Get(ctx, "ABC234")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParticipantsGetFirstFreeSlots(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "ABC234")
	require.NoError(t, err)

	first, err := s.AddOrUpdateParticipant(ctx, "ABC234", "student_aaaa1111", "")
	require.NoError(t, err)
	require.NotNil(t, first.Position)
	assert.Equal(t, 0, *first.Position)
	assert.Equal(t, "Student 1111", first.Name, "default name derives from the id suffix")

	second, err := s.AddOrUpdateParticipant(ctx, "ABC234", "student_bbbb2222", "Mina")
	require.NoError(t, err)
	require.NotNil(t, second.Position)
	assert.Equal(t, 1, *second.Position)
	assert.Equal(t, "Mina", second.Name)
}

func TestRemovedSlotIsReassigned(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "ABC234")
	require.NoError(t, err)

	_, err = s.AddOrUpdateParticipant(ctx, "ABC234", "p1", "one")
	require.NoError(t, err)
	_, err = s.AddOrUpdateParticipant(ctx, "ABC234", "p2", "two")
	require.NoError(t, err)
	require.NoError(t, s.RemoveParticipant(ctx, "ABC234", "p1"))

	third, err := s.AddOrUpdateParticipant(ctx, "ABC234", "p3", "three")
	require.NoError(t, err)
	require.NotNil(t, third.Position)
	assert.Equal(t, 0, *third.Position, "smallest unoccupied slot is reused")
}

func TestRosterCeiling(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "ABC234")
	require.NoError(t, err)

	for i := 0; i < model.MaxSlots; i++ {
		p, err := s.AddOrUpdateParticipant(ctx, "ABC234", fmt.Sprintf("p%02d", i), "")
		require.NoError(t, err)
		require.NotNil(t, p.Position)
		assert.Equal(t, i, *p.Position)
	}

	extra, err := s.AddOrUpdateParticipant(ctx, "ABC234", "p30", "")
	require.NoError(t, err)
	assert.Nil(t, extra.Position, "participants beyond the ceiling stay without a slot")
}

func TestUpsertKeepsSlotAndConnectedAt(t *testing.T) {
	s, _, clock := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "ABC234")
	require.NoError(t, err)

	p, err := s.AddOrUpdateParticipant(ctx, "ABC234", "p1", "one")
	require.NoError(t, err)
	joined := p.ConnectedAt

	clock.Advance(time.Minute)
	updated, err := s.AddOrUpdateParticipant(ctx, "ABC234", "p1", "renamed")
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	require.NotNil(t, updated.Position)
	assert.Equal(t, 0, *updated.Position)
	assert.True(t, updated.ConnectedAt.Equal(joined), "join time survives upserts")

	sess, err := s.Get(ctx, "ABC234")
	require.NoError(t, err)
	assert.Len(t, sess.Students, 1)
}

func TestRecordResultWriteOnce(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "ABC234")
	require.NoError(t, err)
	_, err = s.AddOrUpdateParticipant(ctx, "ABC234", "p1", "one")
	require.NoError(t, err)

	first := model.Result{Time: 12.5, Distance: 100}
	require.NoError(t, s.RecordResult(ctx, "ABC234", "p1", model.GameSprint, first))

	// A second terminal capture must never overwrite the first.
	require.NoError(t, s.RecordResult(ctx, "ABC234", "p1", model.GameSprint, model.Result{Time: 9.9, Distance: 100}))

	sess, err := s.Get(ctx, "ABC234")
	require.NoError(t, err)
	assert.Equal(t, first, sess.Students[0].Results[model.GameSprint])

	// A different game type is an independent slot.
	require.NoError(t, s.RecordResult(ctx, "ABC234", "p1", model.GameEndurance, model.Result{Distance: 10.4, Time: 10}))
	sess, err = s.Get(ctx, "ABC234")
	require.NoError(t, err)
	assert.Len(t, sess.Students[0].Results, 2)
}

func TestRecordResultUnknownParticipant(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "ABC234")
	require.NoError(t, err)

	err = s.RecordResult(ctx, "ABC234", "ghost", model.GameSprint, model.Result{Time: 12, Distance: 100})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetPhase(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "ABC234")
	require.NoError(t, err)

	require.NoError(t, s.SetPhase(ctx, "ABC234", &model.GamePhase{Type: model.GameSprint, Status: model.GameStarted}))
	sess, err := s.Get(ctx, "ABC234")
	require.NoError(t, err)
	require.NotNil(t, sess.GameState)
	assert.Equal(t, model.GameSprint, sess.GameState.Type)

	require.NoError(t, s.SetPhase(ctx, "ABC234", nil))
	sess, err = s.Get(ctx, "ABC234")
	require.NoError(t, err)
	assert.Nil(t, sess.GameState)
}

func TestNotifierCalledAfterCommit(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	var changed []string
	s.SetNotifier(notifierFunc(func(code string) { changed = append(changed, code) }))

	_, err := s.Create(ctx, "ABC234")
	require.NoError(t, err)
	require.NoError(t, s.SetBroadcast(ctx, "ABC234", "hello"))

	assert.Equal(t, []string{"ABC234", "ABC234"}, changed)
}

type notifierFunc func(code string)

func (f notifierFunc) SessionChanged(code string) { f(code) }
