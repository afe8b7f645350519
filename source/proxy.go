package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/loaderkit/go-dataload/loaderror"
	"github.com/loaderkit/go-dataload/resource"
)

// ProxySource fetches external URLs through an indirection endpoint that
// relays the target's content verbatim. The endpoint receives the target URL
// as a query parameter and is expected to follow redirects itself.
type ProxySource struct {
	endpoint *url.URL
	client   *http.Client
}

// NewProxySource creates a ProxySource for the indirection endpoint at
// baseURL joined with proxyPath.
func NewProxySource(baseURL, proxyPath string, client *http.Client) (*ProxySource, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("url must have http or https scheme: %s", baseURL)
	}
	if proxyPath != "" {
		u = u.JoinPath(proxyPath)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &ProxySource{
		endpoint: u,
		client:   client,
	}, nil
}

// Fetch retrieves target through the indirection endpoint and decodes the
// payload as kind. The target URL is validated before any network attempt.
// Transport failures carry an HTTP status where available, distinguishable
// from decode failures.
func (s *ProxySource) Fetch(ctx context.Context, target string, kind resource.Kind) (any, error) {
	if err := validateTarget(target); err != nil {
		return nil, err
	}

	u := *s.endpoint
	q := u.Query()
	q.Set("url", target)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, loaderror.FromResponse(resp.StatusCode, body)
	}

	if kind.Binary() {
		if kind == resource.KindBlob {
			return &resource.Blob{Data: body, ContentType: resp.Header.Get("Content-Type")}, nil
		}
		return body, nil
	}

	text := string(body)
	value, err := decodeText(text, kind)
	if err == nil || kind != resource.KindJSON {
		return value, err
	}
	if errors.Is(err, loaderror.ErrEmptyResponse) {
		return nil, err
	}

	// The upstream served something other than JSON. If it is an HTML page
	// with the real document embedded in it, extract that.
	recovered, rerr := recoverEmbeddedJSON(text)
	if rerr != nil {
		log.Debugw("Cannot recover JSON from payload", "target", target, "err", rerr)
		return nil, err
	}
	log.Infow("Recovered JSON embedded in HTML payload", "target", target)
	return recovered, nil
}

// validateTarget rejects target URLs that cannot possibly be fetched, before
// any network I/O happens.
func validateTarget(target string) error {
	if target == "" {
		return errors.New("external URL is empty")
	}
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid external URL %q: %w", target, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("external URL must have http or https scheme: %s", target)
	}
	return nil
}

// Bind returns a Source fetching the single external target URL. Errors from
// the bound source are wrapped as ExternalSourceError so that callers can
// tell which tier failed.
func (s *ProxySource) Bind(target string) Source {
	return &boundExternal{src: s, target: target}
}

type boundExternal struct {
	src    *ProxySource
	target string
}

func (b *boundExternal) Fetch(ctx context.Context, kind resource.Kind) (any, error) {
	value, err := b.src.Fetch(ctx, b.target, kind)
	if err != nil {
		return nil, &loaderror.ExternalSourceError{URL: b.target, Err: err}
	}
	return value, nil
}

func (b *boundExternal) Provenance() resource.Provenance {
	return resource.External
}

func (b *boundExternal) String() string {
	return "external:" + b.target
}
