package loaderror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/loaderkit/go-dataload/loaderror"
	"github.com/loaderkit/go-dataload/resource"
	"github.com/stretchr/testify/require"
)

func TestStatusError(t *testing.T) {
	serr := loaderror.NewStatusError(errors.New("no such thing"), http.StatusNotFound)
	require.Equal(t, "no such thing", serr.Error())
	require.Equal(t, http.StatusNotFound, serr.Status())
	require.True(t, serr.NotFound())

	serr = loaderror.NewStatusError(nil, http.StatusBadGateway)
	require.Equal(t, "502 Bad Gateway", serr.Error())
	require.False(t, serr.NotFound())
}

func TestFromResponse(t *testing.T) {
	err := loaderror.FromResponse(http.StatusNotFound, []byte("missing\n"))
	var serr *loaderror.StatusError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, http.StatusNotFound, serr.Status())
	require.Equal(t, "missing", serr.Error())

	err = loaderror.FromResponse(0, []byte("plain failure"))
	require.False(t, errors.As(err, &serr))
	require.Equal(t, "plain failure", err.Error())
}

func TestDataLoadErrorUnwrap(t *testing.T) {
	cause := &loaderror.ExternalSourceError{
		URL: "https://ext/x.json",
		Err: errors.New("connection refused"),
	}
	err := &loaderror.DataLoadError{
		Locator: resource.Locator("assets/data/x.json"),
		Kind:    resource.KindJSON,
		Err:     cause,
	}
	require.Contains(t, err.Error(), "assets/data/x.json")
	require.Contains(t, err.Error(), "json")

	var xerr *loaderror.ExternalSourceError
	require.ErrorAs(t, err, &xerr)
	require.Equal(t, "https://ext/x.json", xerr.URL)
}

func TestPreviouslyFailedDistinguishable(t *testing.T) {
	fresh := &loaderror.DataLoadError{
		Locator: "a",
		Kind:    resource.KindText,
		Err:     fmt.Errorf("fetch: %w", errors.New("404")),
	}
	sticky := &loaderror.DataLoadError{
		Locator: "a",
		Kind:    resource.KindText,
		Err:     loaderror.ErrPreviouslyFailed,
	}
	require.False(t, errors.Is(fresh, loaderror.ErrPreviouslyFailed))
	require.True(t, errors.Is(sticky, loaderror.ErrPreviouslyFailed))
}

func TestConfigError(t *testing.T) {
	err := &loaderror.ConfigError{Name: "environment", Err: errors.New("bad JSON")}
	require.Contains(t, err.Error(), "environment")
	require.ErrorContains(t, err, "bad JSON")
}
