// Package store owns the canonical session records in redis. Every mutation
// is a whole-record read-modify-merge-write followed by a marker bump; there
// is no compare-and-swap, so concurrent writers to the same session can lose
// each other's fields within a propagation window. That lost-update race is a
// deliberate property of the eventually-consistent design, shared with every
// other process using the store.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/skyminlab/running-game/internal/accesscode"
	"github.com/skyminlab/running-game/internal/model"
)

var (
	// ErrNotFound means no session record exists for the code. Retry is
	// reasonable: the record may not have propagated yet.
	ErrNotFound = errors.New("session not found")

	// ErrWriteRejected means the storage medium refused or dropped a write.
	// Unlike ErrNotFound this is not a propagation delay.
	ErrWriteRejected = errors.New("session write rejected")
)

// sessionTTL keeps abandoned sessions from accumulating. Every write
// refreshes it.
const sessionTTL = 24 * time.Hour

// Notifier is told after every committed mutation so change signals can fan
// out to readers. Implementations must not block.
type Notifier interface {
	SessionChanged(code string)
}

// SessionStore reads and writes session records.
type SessionStore struct {
	client   *redis.Client
	clock    clockwork.Clock
	log      zerolog.Logger
	notifier Notifier
}

// New creates a session store on the given redis client.
func New(client *redis.Client, clock clockwork.Clock, log zerolog.Logger) *SessionStore {
	return &SessionStore{
		client: client,
		clock:  clock,
		log:    log.With().Str("component", "store").Logger(),
	}
}

// SetNotifier sets the change notifier called after each committed write.
func (s *SessionStore) SetNotifier(n Notifier) {
	s.notifier = n
}

// SessionKey is the redis key holding the session record for a code.
func SessionKey(code string) string {
	return fmt.Sprintf("session:%s", accesscode.Normalize(code))
}

// MarkerKey is the redis key holding the session's change marker.
func MarkerKey(code string) string {
	return fmt.Sprintf("session:%s:sync", accesscode.Normalize(code))
}

// Create initializes an empty session for the code, overwriting any stale
// record left under it. The write is read back immediately and verified;
// a record that does not round-trip reports ErrWriteRejected rather than
// letting the coordinator proceed with a session nobody can join.
func (s *SessionStore) Create(ctx context.Context, code string) (*model.Session, error) {
	code = accesscode.Normalize(code)
	now := s.clock.Now()

	sess := &model.Session{
		Code:       code,
		CreatedAt:  now,
		LastUpdate: now,
		Students:   []model.Participant{},
	}

	if err := s.write(ctx, sess); err != nil {
		return nil, err
	}

	verify, err := s.client.Get(ctx, SessionKey(code)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: read-back failed: %v", ErrWriteRejected, err)
	}
	var check model.Session
	if err := json.Unmarshal(verify, &check); err != nil || check.Code != code {
		return nil, fmt.Errorf("%w: read-back mismatch for %s", ErrWriteRejected, code)
	}

	s.commit(ctx, code)
	s.log.Info().Str("code", code).Msg("session created")
	return sess, nil
}

// Get returns the session for the code, normalizing its casing first. If the
// direct lookup misses, a linear scan recovers records written under a
// differently-normalized key. A record that fails to deserialize is treated
// as absent.
func (s *SessionStore) Get(ctx context.Context, code string) (*model.Session, error) {
	code = accesscode.Normalize(code)

	data, err := s.client.Get(ctx, SessionKey(code)).Bytes()
	if err == redis.Nil {
		return s.scanForCode(ctx, code)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", code, err)
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// Malformed record: fail safe, treat as missing.
		s.log.Warn().Str("code", code).Err(err).Msg("malformed session record")
		return nil, ErrNotFound
	}
	return &sess, nil
}

// scanForCode walks all session records looking for one whose stored code
// matches, regardless of the key it was written under.
func (s *SessionStore) scanForCode(ctx context.Context, code string) (*model.Session, error) {
	iter := s.client.Scan(ctx, 0, "session:*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var sess model.Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue // marker keys and malformed records
		}
		if accesscode.Normalize(sess.Code) == code {
			s.log.Debug().Str("code", code).Str("key", key).Msg("session recovered by scan")
			return &sess, nil
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	return nil, ErrNotFound
}

// Update applies mutate to the current snapshot and writes the whole record
// back, stamping LastUpdate. Concurrent writers can interleave between the
// read and the write; see the package comment.
func (s *SessionStore) Update(ctx context.Context, code string, mutate func(*model.Session)) error {
	code = accesscode.Normalize(code)

	sess, err := s.Get(ctx, code)
	if err != nil {
		return err
	}

	mutate(sess)
	sess.LastUpdate = s.clock.Now()

	if err := s.write(ctx, sess); err != nil {
		return err
	}
	s.commit(ctx, code)
	return nil
}

// Delete removes the session record and its change marker.
func (s *SessionStore) Delete(ctx context.Context, code string) error {
	code = accesscode.Normalize(code)
	if err := s.client.Del(ctx, SessionKey(code), MarkerKey(code)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", code, err)
	}
	s.log.Info().Str("code", code).Msg("session deleted")
	return nil
}

// Marker returns the session's current change-marker value, 0 if none.
func (s *SessionStore) Marker(ctx context.Context, code string) (int64, error) {
	v, err := s.client.Get(ctx, MarkerKey(code)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get marker %s: %w", code, err)
	}
	return v, nil
}

// Snapshot returns the raw session record bytes, nil if absent. Used by the
// content-hash polling fallback so comparison covers exactly what was stored.
func (s *SessionStore) Snapshot(ctx context.Context, code string) ([]byte, error) {
	data, err := s.client.Get(ctx, SessionKey(code)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot session %s: %w", code, err)
	}
	return data, nil
}

func (s *SessionStore) write(ctx context.Context, sess *model.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.Code, err)
	}
	if err := s.client.Set(ctx, SessionKey(sess.Code), data, sessionTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteRejected, err)
	}
	return nil
}

// commit bumps the change marker and notifies listeners. Marker failures are
// logged, not returned: the record write already succeeded and the hash
// polling fallback will still detect the change.
func (s *SessionStore) commit(ctx context.Context, code string) {
	pipe := s.client.Pipeline()
	pipe.Incr(ctx, MarkerKey(code))
	pipe.Expire(ctx, MarkerKey(code), sessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Str("code", code).Err(err).Msg("marker bump failed")
	}
	if s.notifier != nil {
		s.notifier.SessionChanged(code)
	}
}
