package loaderror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/loaderkit/go-dataload/resource"
)

var (
	// ErrPreviouslyFailed reports that a load for the locator already failed
	// and the failure record has not been cleared. No network attempt was
	// made.
	ErrPreviouslyFailed = errors.New("previously failed, not retried")

	// ErrEmptyResponse reports that a fetch completed but the payload was
	// empty where a document was required.
	ErrEmptyResponse = errors.New("empty response")

	// ErrNotJSON reports that a payload could not be decoded as a JSON
	// object or array.
	ErrNotJSON = errors.New("payload is not a JSON object or array")
)

// StatusError is the type of error returned by a network fetch. It contains
// an HTTP status code so that callers can interpret the failure.
type StatusError struct {
	err    error
	status int
}

func NewStatusError(err error, status int) *StatusError {
	return &StatusError{
		err:    err,
		status: status,
	}
}

// FromResponse creates an error from a non-success HTTP response status and
// body.
func FromResponse(status int, body []byte) error {
	var err error
	text := strings.TrimSpace(string(body))
	if text != "" {
		err = errors.New(text)
	}
	if status == 0 {
		return err
	}
	return NewStatusError(err, status)
}

func (e *StatusError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	if e.status == 0 {
		return ""
	}
	// If there is only status, then return status text.
	if text := http.StatusText(e.status); text != "" {
		return fmt.Sprintf("%d %s", e.status, text)
	}
	return fmt.Sprintf("%d", e.status)
}

func (e *StatusError) Status() int {
	return e.status
}

func (e *StatusError) NotFound() bool {
	return e.status == http.StatusNotFound
}

func (e *StatusError) Unwrap() error {
	return e.err
}

// ExternalSourceError reports that fetching from an externally overridden
// source failed. The orchestrator falls back to a local fetch; the external
// error is only surfaced to callers as the cause of a DataLoadError when the
// local attempt also fails.
type ExternalSourceError struct {
	URL string
	Err error
}

func (e *ExternalSourceError) Error() string {
	return fmt.Sprintf("external source %s: %s", e.URL, e.Err)
}

func (e *ExternalSourceError) Unwrap() error {
	return e.Err
}

// ConfigError reports that a configuration document could not be loaded or
// parsed. Configuration errors are non-fatal: they degrade to "no override
// available" and never block local loading.
type ConfigError struct {
	Name string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Name, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// DataLoadError is the terminal error returned when neither the external nor
// the local source produced usable data for a locator, or when a previous
// failure record short-circuits the request.
type DataLoadError struct {
	Locator resource.Locator
	Kind    resource.Kind
	Err     error
}

func (e *DataLoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cannot load %s as %s", e.Locator, e.Kind)
	}
	return fmt.Sprintf("cannot load %s as %s: %s", e.Locator, e.Kind, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}
