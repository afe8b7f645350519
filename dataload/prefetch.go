package dataload

import (
	"context"
	"sync"

	"github.com/gammazero/channelqueue"
	"github.com/loaderkit/go-dataload/resource"
)

// prefetcher loads queued resources in the background to warm the cache.
// It is a best-effort optimization: a prefetch failure is logged and its
// failure record cleared, so a later foreground load still makes a real
// attempt.
type prefetcher struct {
	loader *Loader
	cq     *channelqueue.ChannelQueue[string]
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

func newPrefetcher(l *Loader) *prefetcher {
	ctx, cancel := context.WithCancel(context.Background())
	p := &prefetcher{
		loader: l,
		cq:     channelqueue.New[string](-1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// enqueue adds paths to the prefetch queue. The queue is unbounded, so
// enqueue never blocks the caller. Paths enqueued after stop are dropped.
func (p *prefetcher) enqueue(paths ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	for _, path := range paths {
		p.cq.In() <- path
	}
}

func (p *prefetcher) run() {
	defer close(p.done)
	for {
		select {
		case path, ok := <-p.cq.Out():
			if !ok {
				return
			}
			if _, err := p.loader.GetData(p.ctx, path, resource.KindJSON); err != nil {
				log.Debugw("Prefetch failed", "path", path, "err", err)
				p.loader.store.clearFailure(resource.Normalize(path))
			}
		case <-p.ctx.Done():
			return
		}
	}
}

// stop cancels the prefetcher, closes the queue, and waits for its
// goroutines to exit. Queued paths that have not started loading are
// dropped.
func (p *prefetcher) stop() {
	p.cancel()
	<-p.done

	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.cq.In())
	}
	p.mu.Unlock()

	// Drain so the queue's buffering goroutine can finish and close Out.
	for range p.cq.Out() {
	}
}
