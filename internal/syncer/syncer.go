// Package syncer propagates "this session may have changed" signals from
// writers to every reader. Three strategies run side by side: a synchronous
// push for listeners in the writing process, redis pub/sub for listeners in
// other processes, and per-watcher polling of the change marker plus a
// content hash as the safety net when a published signal is lost. Writers
// are never blocked; the worst-case staleness is one polling interval.
package syncer

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/skyminlab/running-game/internal/accesscode"
	"github.com/skyminlab/running-game/internal/store"
)

// changeChannel is the redis pub/sub channel carrying changed session codes.
const changeChannel = "session:changed"

// Syncer fans change signals out to subscribed listeners. It implements
// store.Notifier.
type Syncer struct {
	client *redis.Client
	store  *store.SessionStore
	log    zerolog.Logger

	mu        sync.RWMutex
	nextID    int
	listeners map[string]map[int]func()
}

// New creates a syncer over the given redis client and store.
func New(client *redis.Client, st *store.SessionStore, log zerolog.Logger) *Syncer {
	return &Syncer{
		client:    client,
		store:     st,
		log:       log.With().Str("component", "syncer").Logger(),
		listeners: make(map[string]map[int]func()),
	}
}

// SessionChanged is called by the store after each committed write. Local
// listeners are notified synchronously, bypassing polling latency; the code
// is also published for readers in other processes. Publish failures are
// logged only, because the polling fallback still covers the change.
func (s *Syncer) SessionChanged(code string) {
	code = accesscode.Normalize(code)
	s.notifyLocal(code)

	if err := s.client.Publish(context.Background(), changeChannel, code).Err(); err != nil {
		s.log.Warn().Str("code", code).Err(err).Msg("publish change signal failed")
	}
}

// Run consumes cross-process change signals until the context is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	sub := s.client.Subscribe(ctx, changeChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.notifyLocal(accesscode.Normalize(msg.Payload))
		}
	}
}

// Subscribe registers a change listener for a session code and returns its
// cancel function. Teardown must mirror setup or the listener leaks.
func (s *Syncer) Subscribe(code string, fn func()) (cancel func()) {
	code = accesscode.Normalize(code)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	if s.listeners[code] == nil {
		s.listeners[code] = make(map[int]func())
	}
	s.listeners[code][id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners[code], id)
		if len(s.listeners[code]) == 0 {
			delete(s.listeners, code)
		}
	}
}

func (s *Syncer) notifyLocal(code string) {
	s.mu.RLock()
	fns := make([]func(), 0, len(s.listeners[code]))
	for _, fn := range s.listeners[code] {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}
