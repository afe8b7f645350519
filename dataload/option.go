package dataload

import (
	"fmt"
	"net/http"
	"time"
)

const (
	// defaultEnvPath is the local location of the environment document.
	defaultEnvPath = "config/environment.json"
	// defaultOverridesPath is the local location of the overrides document,
	// used when the environment does not supply one.
	defaultOverridesPath = "config/overrides.json"
	// defaultExternalTimeout is the time limit for a single external fetch
	// through the indirection endpoint. The local path has no extra timeout
	// beyond the HTTP client's own.
	defaultExternalTimeout = 10 * time.Second
	// defaultRetryMax is the number of retries for external fetches.
	defaultRetryMax = 2

	defaultRetryWaitMin = 500 * time.Millisecond
	defaultRetryWaitMax = 5 * time.Second
)

// config contains all options for configuring Loader.
type config struct {
	httpClient *http.Client

	envPath       string
	overridesPath string

	extTimeout   time.Duration
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration

	prefetch []string
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		httpClient:    http.DefaultClient,
		envPath:       defaultEnvPath,
		overridesPath: defaultOverridesPath,
		extTimeout:    defaultExternalTimeout,
		retryMax:      defaultRetryMax,
		retryWaitMin:  defaultRetryWaitMin,
		retryWaitMax:  defaultRetryWaitMax,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithClient sets the HTTP client used for local fetches.
func WithClient(c *http.Client) Option {
	return func(cfg *config) error {
		if c != nil {
			cfg.httpClient = c
		}
		return nil
	}
}

// WithEnvConfigPath sets the local path of the environment configuration
// document.
//
// Default is "config/environment.json".
func WithEnvConfigPath(path string) Option {
	return func(cfg *config) error {
		if path != "" {
			cfg.envPath = path
		}
		return nil
	}
}

// WithOverridesPath sets the local path of the overrides document, used when
// the environment configuration does not supply an overrides location.
//
// Default is "config/overrides.json".
func WithOverridesPath(path string) Option {
	return func(cfg *config) error {
		if path != "" {
			cfg.overridesPath = path
		}
		return nil
	}
}

// WithExternalTimeout sets the time limit for a single fetch through the
// indirection endpoint. On timeout the external attempt fails and the loader
// falls back to the local source.
//
// Default is 10 seconds.
func WithExternalTimeout(timeout time.Duration) Option {
	return func(cfg *config) error {
		if timeout < 0 {
			return fmt.Errorf("external timeout cannot be negative")
		}
		cfg.extTimeout = timeout
		return nil
	}
}

// WithExternalRetry sets the retry policy for fetches through the indirection
// endpoint. Setting retryMax to 0 disables retries.
func WithExternalRetry(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(cfg *config) error {
		if retryMax < 0 {
			return fmt.Errorf("retryMax cannot be negative")
		}
		cfg.retryMax = retryMax
		cfg.retryWaitMin = waitMin
		cfg.retryWaitMax = waitMax
		return nil
	}
}

// WithPrefetch queues the given resource paths for best-effort background
// loading as soon as the Loader is created. Prefetch failures are logged and
// never affect foreground loads.
func WithPrefetch(paths ...string) Option {
	return func(cfg *config) error {
		cfg.prefetch = append(cfg.prefetch, paths...)
		return nil
	}
}
