package syncer

import (
	"context"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jonboulle/clockwork"

	"github.com/skyminlab/running-game/internal/accesscode"
)

// DefaultPollInterval bounds worst-case staleness for readers that miss a
// pushed signal.
const DefaultPollInterval = 400 * time.Millisecond

// Watcher observes one session for a single reader. A strictly greater
// marker value triggers the callback; so does a changed content hash of the
// raw record, covering the case where the marker update itself was lost.
// Read errors are treated as "no change yet" so a flaky poll never aborts a
// race in progress.
type Watcher struct {
	syncer   *Syncer
	clock    clockwork.Clock
	code     string
	interval time.Duration
	onChange func()

	unsubscribe func()
	stop        chan struct{}
	done        chan struct{}

	lastMarker int64
	lastHash   uint64
}

// Watch starts observing the session, invoking onChange from both pushed
// signals and the polling loop. Callers must Stop the watcher on teardown.
func (s *Syncer) Watch(ctx context.Context, code string, clock clockwork.Clock, interval time.Duration, onChange func()) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	w := &Watcher{
		syncer:   s,
		clock:    clock,
		code:     accesscode.Normalize(code),
		interval: interval,
		onChange: onChange,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	w.unsubscribe = s.Subscribe(w.code, onChange)

	// Seed the baseline so the first poll does not fire for state the
	// reader has already seen.
	w.lastMarker, w.lastHash = w.observe(ctx)

	go w.poll(ctx)
	return w
}

// Stop cancels the polling loop and the push subscription. It is safe to
// call once; it blocks until the loop exits.
func (w *Watcher) Stop() {
	w.unsubscribe()
	close(w.stop)
	<-w.done
}

func (w *Watcher) poll(ctx context.Context) {
	defer close(w.done)

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.Chan():
			marker, hash := w.observe(ctx)
			if marker > w.lastMarker || hash != w.lastHash {
				w.lastMarker = marker
				w.lastHash = hash
				w.onChange()
			}
		}
	}
}

func (w *Watcher) observe(ctx context.Context) (int64, uint64) {
	marker, err := w.syncer.store.Marker(ctx, w.code)
	if err != nil {
		w.syncer.log.Debug().Str("code", w.code).Err(err).Msg("marker poll failed")
		marker = w.lastMarker
	}

	snapshot, err := w.syncer.store.Snapshot(ctx, w.code)
	if err != nil {
		w.syncer.log.Debug().Str("code", w.code).Err(err).Msg("snapshot poll failed")
		return marker, w.lastHash
	}
	if snapshot == nil {
		return marker, 0
	}
	return marker, xxhash.Sum64(snapshot)
}
