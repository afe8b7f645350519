package dataload

import (
	"context"
	"sync"
	"time"

	"github.com/loaderkit/go-dataload/resource"
)

// flight is one in-flight load sequence for a locator. All callers that
// request the locator while the flight is pending wait on done and observe
// the same value or error. The kind records what the flight is fetching so
// that a caller wanting a different kind can tell it must not consume the
// result.
type flight struct {
	kind  resource.Kind
	done  chan struct{}
	value any
	err   error
}

func (f *flight) wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// store is the authoritative map of cached results and in-flight loads. It is
// owned and mutated only by the Loader; mutation is synchronous under one
// mutex with no suspension points.
type store struct {
	mu       sync.Mutex
	entries  map[resource.Locator]*resource.Entry
	inflight map[resource.Locator]*flight
}

func newStore() *store {
	return &store{
		entries:  make(map[resource.Locator]*resource.Entry),
		inflight: make(map[resource.Locator]*flight),
	}
}

// lookup reports the cached state of loc in one atomic step: a matching
// entry, a recorded failure, or the pending flight. When none apply, a new
// flight is registered and returned with started=true; the caller owns
// completing it. A cached entry with a different kind is a miss and starts a
// new flight.
func (s *store) lookup(loc resource.Locator, kind resource.Kind) (ent *resource.Entry, f *flight, started bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ent = s.entries[loc]; ent != nil {
		if ent.Failed || ent.Kind == kind {
			return ent, nil, false
		}
		ent = nil
	}
	if f = s.inflight[loc]; f != nil {
		return nil, f, false
	}
	f = &flight{kind: kind, done: make(chan struct{})}
	s.inflight[loc] = f
	return nil, f, true
}

// complete resolves a flight and, unless the flight was cleared while
// pending, records the result in the entry map. A late result for a cleared
// flight is discarded, never stored.
func (s *store) complete(loc resource.Locator, f *flight, kind resource.Kind, prov resource.Provenance, value any, err error) {
	s.mu.Lock()
	if s.inflight[loc] == f {
		delete(s.inflight, loc)
		ent := &resource.Entry{
			Kind:      kind,
			CreatedAt: time.Now(),
		}
		if err != nil {
			ent.Failed = true
		} else {
			ent.Payload = value
			ent.Provenance = prov
		}
		s.entries[loc] = ent
	}
	s.mu.Unlock()

	f.value = value
	f.err = err
	close(f.done)
}

// clearFailure removes the entry for loc only if it is a failure record.
// In-flight state is left alone. Used by the prefetcher so that a failed
// background load does not make later foreground loads fail fast.
func (s *store) clearFailure(loc resource.Locator) {
	s.mu.Lock()
	if ent := s.entries[loc]; ent != nil && ent.Failed {
		delete(s.entries, loc)
	}
	s.mu.Unlock()
}

// clear removes the entry and any in-flight record for loc.
func (s *store) clear(loc resource.Locator) {
	s.mu.Lock()
	delete(s.entries, loc)
	delete(s.inflight, loc)
	s.mu.Unlock()
}

// clearAll removes all entries and in-flight records.
func (s *store) clearAll() {
	s.mu.Lock()
	s.entries = make(map[resource.Locator]*resource.Entry)
	s.inflight = make(map[resource.Locator]*flight)
	s.mu.Unlock()
}

func (s *store) stats() (entries, pending int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), len(s.inflight)
}
