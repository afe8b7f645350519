package dataload

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-retryablehttp"
	logging "github.com/ipfs/go-log/v2"
	"github.com/loaderkit/go-dataload/cfgload"
	"github.com/loaderkit/go-dataload/loaderror"
	"github.com/loaderkit/go-dataload/resource"
	"github.com/loaderkit/go-dataload/source"
)

var log = logging.Logger("dataload")

// Loader is the public entry point of the data loading layer. It sequences
// configuration bootstrap, override resolution, external-then-local fetching,
// and caching, and deduplicates concurrent loads of the same resource.
//
// A Loader is safe for concurrent use. Construct one per application session
// and tear it down with Close.
type Loader struct {
	local     *source.LocalSource
	extClient *http.Client

	env *cfgload.Loader[cfgload.Environment]
	ovr *cfgload.Loader[cfgload.Overrides]

	// proxy is built during bootstrap, once the environment document tells
	// where the indirection endpoint is. Nil means no external path.
	proxy atomic.Pointer[source.ProxySource]

	// ready is the one-time initialization latch. All loads wait on it
	// before consulting overrides.
	ready     chan struct{}
	bootGuard atomic.Bool

	store *store

	prefMu     sync.Mutex
	prefetcher *prefetcher
}

// New creates a Loader that serves resources from local static hosting at
// localBase, overridden per resource by external sources named in the
// overrides configuration.
//
// Configuration is loaded asynchronously on first use; construction performs
// no I/O.
func New(localBase string, options ...Option) (*Loader, error) {
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}

	local, err := source.NewLocalSource(localBase, opts.httpClient)
	if err != nil {
		return nil, err
	}

	// External fetches get a bounded per-request wait and a few retries.
	// On exhaustion the loader falls back to the local source.
	rclient := &retryablehttp.Client{
		HTTPClient:   &http.Client{Timeout: opts.extTimeout},
		RetryWaitMin: opts.retryWaitMin,
		RetryWaitMax: opts.retryWaitMax,
		RetryMax:     opts.retryMax,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
	}

	l := &Loader{
		local:     local,
		extClient: rclient.StandardClient(),
		store:     newStore(),
		ready:     make(chan struct{}),
	}

	l.env = cfgload.NewLoader[cfgload.Environment]("environment", func(ctx context.Context) ([]byte, error) {
		return local.FetchConfig(ctx, opts.envPath)
	})
	l.ovr = cfgload.NewLoader[cfgload.Overrides]("overrides", func(ctx context.Context) ([]byte, error) {
		return l.fetchOverridesDoc(ctx, opts.overridesPath)
	})

	if len(opts.prefetch) != 0 {
		l.Prefetch(opts.prefetch...)
	}

	return l, nil
}

// GetData loads the resource at path as the given kind. The returned value is
// any for KindJSON (a freshly decoded document per call), string for
// KindText, *resource.Blob for KindBlob, and []byte for KindBytes. Binary
// payloads are shared with the cache; structured payloads are not, so callers
// may mutate them freely.
func (l *Loader) GetData(ctx context.Context, path string, kind resource.Kind) (any, error) {
	value, err := l.getValue(ctx, path, kind)
	if err != nil {
		return nil, err
	}
	if raw, ok := value.(json.RawMessage); ok {
		var v any
		if err = json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return value, nil
}

// GetJSON loads the resource at path as KindJSON and decodes it into a value
// of type T. Each call decodes from the cached document, so the result never
// aliases cache state.
func GetJSON[T any](ctx context.Context, l *Loader, path string) (T, error) {
	var out T
	value, err := l.getValue(ctx, path, resource.KindJSON)
	if err != nil {
		return out, err
	}
	raw, ok := value.(json.RawMessage)
	if !ok {
		return out, fmt.Errorf("resource %s was not loaded as %s", path, resource.KindJSON)
	}
	if err = json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

// GetText loads the resource at path as plain text.
func (l *Loader) GetText(ctx context.Context, path string) (string, error) {
	value, err := l.getValue(ctx, path, resource.KindText)
	if err != nil {
		return "", err
	}
	text, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("resource %s was not loaded as %s", path, resource.KindText)
	}
	return text, nil
}

// GetBlob loads the resource at path as an opaque binary object. The blob is
// returned by reference; callers must not modify its data.
func (l *Loader) GetBlob(ctx context.Context, path string) (*resource.Blob, error) {
	value, err := l.getValue(ctx, path, resource.KindBlob)
	if err != nil {
		return nil, err
	}
	blob, ok := value.(*resource.Blob)
	if !ok {
		return nil, fmt.Errorf("resource %s was not loaded as %s", path, resource.KindBlob)
	}
	return blob, nil
}

// GetBytes loads the resource at path as a raw byte buffer, returned by
// reference.
func (l *Loader) GetBytes(ctx context.Context, path string) ([]byte, error) {
	value, err := l.getValue(ctx, path, resource.KindBytes)
	if err != nil {
		return nil, err
	}
	buf, ok := value.([]byte)
	if !ok {
		return nil, fmt.Errorf("resource %s was not loaded as %s", path, resource.KindBytes)
	}
	return buf, nil
}

// getValue returns the cached payload for path, loading it if necessary.
// JSON payloads are returned in raw form; GetData and GetJSON decode fresh
// copies from them.
func (l *Loader) getValue(ctx context.Context, path string, kind resource.Kind) (any, error) {
	if kind == resource.KindInvalid {
		return nil, fmt.Errorf("invalid resource kind requested for %q", path)
	}
	loc := resource.Normalize(path)
	if loc == "" {
		return nil, fmt.Errorf("empty resource path %q", path)
	}

	ent, f, started := l.store.lookup(loc, kind)
	if ent != nil {
		if ent.Failed {
			return nil, &loaderror.DataLoadError{Locator: loc, Kind: kind, Err: loaderror.ErrPreviouslyFailed}
		}
		return ent.Payload, nil
	}
	if !started {
		if f.kind != kind {
			// A flight for a different kind is pending. Its result cannot
			// serve this request, so wait for it to settle and re-check the
			// cache: the stored entry's kind will not match, which starts a
			// fresh fetch. This keeps a single load sequence per locator
			// while never handing a caller a wrong-kind payload.
			_, _ = f.wait(ctx)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return l.getValue(ctx, path, kind)
		}
		return f.wait(ctx)
	}

	// This caller won the flight; run the load in its own goroutine so that
	// cancellation of one waiter does not fail the result for the others.
	go func() {
		value, prov, err := l.load(context.Background(), loc, kind)
		l.store.complete(loc, f, kind, prov, value, err)
	}()
	return f.wait(ctx)
}

// load runs the full external-then-local fetch sequence for one locator.
func (l *Loader) load(ctx context.Context, loc resource.Locator, kind resource.Kind) (any, resource.Provenance, error) {
	if err := l.ensureReady(ctx); err != nil {
		return nil, "", err
	}

	srcs := make([]source.Source, 0, 2)
	if target, ok := l.overrideFor(loc); ok {
		if proxy := l.proxy.Load(); proxy != nil {
			srcs = append(srcs, proxy.Bind(target))
		} else {
			log.Debugw("Override present but no proxy configured, using local source", "locator", loc)
		}
	}
	srcs = append(srcs, l.local.Bind(loc))

	var errs error
	for _, src := range srcs {
		value, err := src.Fetch(ctx, kind)
		if err != nil {
			log.Errorw("Cannot fetch resource", "err", err, "source", src, "locator", loc)
			errs = multierror.Append(errs, err)
			continue
		}
		if value == nil {
			errs = multierror.Append(errs, fmt.Errorf("source %s returned no data", src))
			continue
		}
		return value, src.Provenance(), nil
	}
	return nil, "", &loaderror.DataLoadError{Locator: loc, Kind: kind, Err: errs}
}

// ensureReady waits for the one-time configuration bootstrap: environment
// first, then overrides, since the environment names the overrides location.
// Bootstrap failures degrade to "no override available" and never block
// local loading.
func (l *Loader) ensureReady(ctx context.Context) error {
	if l.bootGuard.CompareAndSwap(false, true) {
		go func() {
			defer close(l.ready)
			ctx := context.Background()
			if err := l.env.EnsureLoaded(ctx); err != nil {
				log.Errorw("Environment config load interrupted", "err", err)
			}
			l.initProxy()
			if err := l.ovr.EnsureLoaded(ctx); err != nil {
				log.Errorw("Overrides config load interrupted", "err", err)
			}
		}()
	}
	select {
	case <-l.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loader) initProxy() {
	env, ok := l.env.Config()
	if !ok || !env.Proxy.Configured() {
		log.Infow("No proxy endpoint configured, external overrides disabled")
		return
	}
	proxy, err := source.NewProxySource(env.Proxy.BaseURL, env.Proxy.Path, l.extClient)
	if err != nil {
		log.Errorw("Cannot configure proxy endpoint", "err", err, "baseUrl", env.Proxy.BaseURL)
		return
	}
	l.proxy.Store(proxy)
}

// fetchOverridesDoc retrieves the overrides document from the location the
// environment config names, falling back to the default local path. An
// external location is fetched through the proxy.
func (l *Loader) fetchOverridesDoc(ctx context.Context, defaultPath string) ([]byte, error) {
	location := defaultPath
	if env, ok := l.env.Config(); ok && env.Overrides != "" {
		location = env.Overrides
	}
	if isExternalURL(location) {
		proxy := l.proxy.Load()
		if proxy == nil {
			return nil, fmt.Errorf("overrides location %s is external but no proxy is configured", location)
		}
		value, err := proxy.Fetch(ctx, location, resource.KindBytes)
		if err != nil {
			return nil, err
		}
		return value.([]byte), nil
	}
	return l.local.FetchConfig(ctx, location)
}

func isExternalURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// overrideFor returns the external URL overriding loc, if the overrides
// configuration has one.
func (l *Loader) overrideFor(loc resource.Locator) (string, bool) {
	ovr, ok := l.ovr.Config()
	if !ok {
		return "", false
	}
	return ovr.Resolve(loc)
}

// ClearCache removes the cached entries and in-flight records for the given
// paths, or everything when called with no arguments. A load in flight for a
// cleared path keeps running but its late result is discarded. Clearing is
// the only way to retry a resource whose loads previously failed.
func (l *Loader) ClearCache(paths ...string) {
	if len(paths) == 0 {
		l.store.clearAll()
		return
	}
	for _, path := range paths {
		l.store.clear(resource.Normalize(path))
	}
}

// CacheStats is a read-only snapshot of cache occupancy.
type CacheStats struct {
	Entries int
	Pending int
}

// GetCacheStats returns the number of cached entries, including failure
// records, and the number of loads currently in flight.
func (l *Loader) GetCacheStats() CacheStats {
	entries, pending := l.store.stats()
	return CacheStats{
		Entries: entries,
		Pending: pending,
	}
}

// Prefetch queues the given resource paths for best-effort background
// loading. Failures are logged, never surfaced; a later GetData retries
// normally since prefetch failures are cleared rather than recorded.
func (l *Loader) Prefetch(paths ...string) {
	l.prefMu.Lock()
	if l.prefetcher == nil {
		l.prefetcher = newPrefetcher(l)
	}
	p := l.prefetcher
	l.prefMu.Unlock()
	p.enqueue(paths...)
}

// Close stops background prefetching. The Loader remains usable for
// foreground loads.
func (l *Loader) Close() {
	l.prefMu.Lock()
	p := l.prefetcher
	l.prefMu.Unlock()
	if p != nil {
		p.stop()
	}
}
