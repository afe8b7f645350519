package source_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/loaderkit/go-dataload/loaderror"
	"github.com/loaderkit/go-dataload/resource"
	"github.com/loaderkit/go-dataload/source"
	"github.com/stretchr/testify/require"
)

// proxyServer serves the given body for any request that carries a url query
// parameter, counting requests.
func proxyServer(t *testing.T, status int, contentType, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.NotEmpty(t, r.URL.Query().Get("url"))
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestProxyFetchJSON(t *testing.T) {
	srv, calls := proxyServer(t, http.StatusOK, "application/json", `{"b":2}`)
	ps, err := source.NewProxySource(srv.URL, "proxy", nil)
	require.NoError(t, err)

	v, err := ps.Fetch(context.Background(), "https://ext/x.json", resource.KindJSON)
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())

	raw, ok := v.(json.RawMessage)
	require.True(t, ok)
	require.JSONEq(t, `{"b":2}`, string(raw))
}

func TestProxyValidatesTargetBeforeFetch(t *testing.T) {
	srv, calls := proxyServer(t, http.StatusOK, "", "ignored")
	ps, err := source.NewProxySource(srv.URL, "proxy", nil)
	require.NoError(t, err)

	for _, target := range []string{"", "ftp://ext/x", "not a url at all\x7f://", "relative/path"} {
		_, err = ps.Fetch(context.Background(), target, resource.KindJSON)
		require.Error(t, err, "target %q", target)
	}
	require.Equal(t, int32(0), calls.Load(), "validation must not reach the network")
}

func TestProxyFetchText(t *testing.T) {
	srv, _ := proxyServer(t, http.StatusOK, "text/plain", "hello world")
	ps, err := source.NewProxySource(srv.URL, "proxy", nil)
	require.NoError(t, err)

	v, err := ps.Fetch(context.Background(), "https://ext/x.txt", resource.KindText)
	require.NoError(t, err)
	require.Equal(t, "hello world", v)
}

func TestProxyFetchBinary(t *testing.T) {
	srv, _ := proxyServer(t, http.StatusOK, "application/octet-stream", "\x00\x01\x02")
	ps, err := source.NewProxySource(srv.URL, "proxy", nil)
	require.NoError(t, err)

	v, err := ps.Fetch(context.Background(), "https://ext/x.bin", resource.KindBlob)
	require.NoError(t, err)
	blob, ok := v.(*resource.Blob)
	require.True(t, ok)
	require.Equal(t, []byte{0, 1, 2}, blob.Data)
	require.Equal(t, "application/octet-stream", blob.ContentType)

	v, err = ps.Fetch(context.Background(), "https://ext/x.bin", resource.KindBytes)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 1, 2}, v)
}

func TestProxyEmptyResponse(t *testing.T) {
	srv, _ := proxyServer(t, http.StatusOK, "", "")
	ps, err := source.NewProxySource(srv.URL, "proxy", nil)
	require.NoError(t, err)

	_, err = ps.Fetch(context.Background(), "https://ext/x.json", resource.KindJSON)
	require.ErrorIs(t, err, loaderror.ErrEmptyResponse)

	_, err = ps.Fetch(context.Background(), "https://ext/x.txt", resource.KindText)
	require.ErrorIs(t, err, loaderror.ErrEmptyResponse)
}

func TestProxyRejectsBarePrimitive(t *testing.T) {
	srv, _ := proxyServer(t, http.StatusOK, "application/json", `42`)
	ps, err := source.NewProxySource(srv.URL, "proxy", nil)
	require.NoError(t, err)

	_, err = ps.Fetch(context.Background(), "https://ext/x.json", resource.KindJSON)
	require.ErrorIs(t, err, loaderror.ErrNotJSON)
}

func TestProxyRecoversJSONFromHTML(t *testing.T) {
	page := `<!DOCTYPE html><html><body><script>var data = {"c":3};</script></body></html>`
	srv, _ := proxyServer(t, http.StatusOK, "text/html", page)
	ps, err := source.NewProxySource(srv.URL, "proxy", nil)
	require.NoError(t, err)

	v, err := ps.Fetch(context.Background(), "https://ext/x.json", resource.KindJSON)
	require.NoError(t, err)
	raw, ok := v.(json.RawMessage)
	require.True(t, ok)
	require.JSONEq(t, `{"c":3}`, string(raw))
}

func TestProxyRecoveryFailureIsError(t *testing.T) {
	srv, _ := proxyServer(t, http.StatusOK, "text/html", "<html><body>nothing here</body></html>")
	ps, err := source.NewProxySource(srv.URL, "proxy", nil)
	require.NoError(t, err)

	_, err = ps.Fetch(context.Background(), "https://ext/x.json", resource.KindJSON)
	require.ErrorIs(t, err, loaderror.ErrNotJSON)
}

func TestProxyNonHTMLGarbageIsError(t *testing.T) {
	srv, _ := proxyServer(t, http.StatusOK, "text/plain", "definitely not json")
	ps, err := source.NewProxySource(srv.URL, "proxy", nil)
	require.NoError(t, err)

	_, err = ps.Fetch(context.Background(), "https://ext/x.json", resource.KindJSON)
	require.ErrorIs(t, err, loaderror.ErrNotJSON)
}

func TestProxyStatusError(t *testing.T) {
	srv, _ := proxyServer(t, http.StatusBadGateway, "", "upstream unreachable")
	ps, err := source.NewProxySource(srv.URL, "proxy", nil)
	require.NoError(t, err)

	_, err = ps.Fetch(context.Background(), "https://ext/x.json", resource.KindJSON)
	var serr *loaderror.StatusError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, http.StatusBadGateway, serr.Status())
}

func TestBoundExternalWrapsError(t *testing.T) {
	srv, _ := proxyServer(t, http.StatusNotFound, "", "missing")
	ps, err := source.NewProxySource(srv.URL, "proxy", nil)
	require.NoError(t, err)

	src := ps.Bind("https://ext/x.json")
	require.Equal(t, resource.External, src.Provenance())

	_, err = src.Fetch(context.Background(), resource.KindJSON)
	var xerr *loaderror.ExternalSourceError
	require.ErrorAs(t, err, &xerr)
	require.Equal(t, "https://ext/x.json", xerr.URL)
}

func TestLocalFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/assets/data/x.json":
			w.Write([]byte(`{"a":1}`))
		case "/assets/text/x.txt":
			w.Write([]byte("plain"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	ls, err := source.NewLocalSource(srv.URL, nil)
	require.NoError(t, err)

	v, err := ls.Fetch(context.Background(), "assets/data/x.json", resource.KindJSON)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(v.(json.RawMessage)))

	v, err = ls.Fetch(context.Background(), "assets/text/x.txt", resource.KindText)
	require.NoError(t, err)
	require.Equal(t, "plain", v)

	_, err = ls.Fetch(context.Background(), "assets/data/missing.json", resource.KindJSON)
	var serr *loaderror.StatusError
	require.ErrorAs(t, err, &serr)
	require.True(t, serr.NotFound())

	src := ls.Bind("assets/data/x.json")
	require.Equal(t, resource.Local, src.Provenance())
	v, err = src.Fetch(context.Background(), resource.KindJSON)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(v.(json.RawMessage)))
}

func TestLocalFetchConfigDefeatsCaching(t *testing.T) {
	var sawBuster atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("t") != "" {
			sawBuster.Store(true)
		}
		w.Write([]byte(`{"proxy":{"baseUrl":"https://proxy.example"}}`))
	}))
	t.Cleanup(srv.Close)

	ls, err := source.NewLocalSource(srv.URL, nil)
	require.NoError(t, err)

	raw, err := ls.FetchConfig(context.Background(), "/config/environment.json")
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	require.True(t, sawBuster.Load())
}

func TestNewSourceRejectsBadBase(t *testing.T) {
	_, err := source.NewLocalSource("not-a-scheme", nil)
	require.Error(t, err)
	_, err = source.NewProxySource("file:///tmp", "proxy", nil)
	require.Error(t, err)
}
