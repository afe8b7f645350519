// Package cfgload provides one-shot loading of JSON configuration documents.
//
// A Loader fetches and decodes a single document at most once. Concurrent
// callers of EnsureLoaded coalesce onto the same in-flight load. A load that
// finds no document, or a document that does not parse, is not an error:
// the loader is marked attempted and dependent code proceeds with default
// behavior.
package cfgload

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"github.com/loaderkit/go-dataload/loaderror"
)

var log = logging.Logger("cfgload")

// FetchFunc retrieves the raw bytes of a configuration document.
type FetchFunc func(context.Context) ([]byte, error)

// Loader loads one JSON document of type T, exactly once.
type Loader[T any] struct {
	name  string
	fetch FetchFunc

	mu        sync.Mutex
	gen       uint64
	attempted bool
	loading   chan struct{}
	snapshot  *T
}

// NewLoader creates a Loader for the named document. The name is used only
// for logging.
func NewLoader[T any](name string, fetch FetchFunc) *Loader[T] {
	return &Loader[T]{
		name:  name,
		fetch: fetch,
	}
}

// EnsureLoaded loads the document if it has not been loaded yet. If a load is
// already in flight, the caller waits for that load instead of starting
// another. Missing or unparsable documents do not fail the caller; the loader
// records the attempt and leaves the snapshot absent. The returned error is
// non-nil only when ctx is done before the load completes.
func (l *Loader[T]) EnsureLoaded(ctx context.Context) error {
	l.mu.Lock()
	if l.attempted {
		l.mu.Unlock()
		return nil
	}
	if l.loading != nil {
		ch := l.loading
		l.mu.Unlock()
		select {
		case <-ch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	ch := make(chan struct{})
	l.loading = ch
	gen := l.gen
	l.mu.Unlock()

	snapshot, err := l.load(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loading == ch {
		l.loading = nil
	}
	close(ch)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// Do not count a canceled fetch as an attempt; a later caller may
		// retry.
		return ctx.Err()
	}
	if l.gen != gen {
		// Reset while loading; discard this result.
		return nil
	}
	l.snapshot = snapshot
	l.attempted = true
	return nil
}

func (l *Loader[T]) load(ctx context.Context) (*T, error) {
	data, err := l.fetch(ctx)
	if err != nil {
		cerr := &loaderror.ConfigError{Name: l.name, Err: err}
		log.Infow("Cannot load config, using defaults", "name", l.name, "err", cerr)
		return nil, err
	}
	var v T
	if err = json.Unmarshal(data, &v); err != nil {
		cerr := &loaderror.ConfigError{Name: l.name, Err: err}
		log.Errorw("Cannot parse config, using defaults", "name", l.name, "err", cerr)
		return nil, nil
	}
	return &v, nil
}

// Config returns the last successfully loaded snapshot. The second return
// value is false if no document has been successfully loaded.
func (l *Loader[T]) Config() (*T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot, l.snapshot != nil
}

// Attempted reports whether a load has completed, successfully or not.
func (l *Loader[T]) Attempted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempted
}

// Reset clears the snapshot and the attempted state so that the next
// EnsureLoaded performs a fresh load. A load in flight at the time of the
// reset is discarded when it completes.
func (l *Loader[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.snapshot = nil
	l.attempted = false
}
