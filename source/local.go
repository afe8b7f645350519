package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/loaderkit/go-dataload/loaderror"
	"github.com/loaderkit/go-dataload/resource"
)

// LocalSource fetches resources from local static hosting with a plain GET of
// the resource path under a base URL.
type LocalSource struct {
	base   *url.URL
	client *http.Client
}

// NewLocalSource creates a LocalSource rooted at baseURL.
func NewLocalSource(baseURL string, client *http.Client) (*LocalSource, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("url must have http or https scheme: %s", baseURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &LocalSource{
		base:   u,
		client: client,
	}, nil
}

// Fetch retrieves the resource at loc and decodes it as kind.
func (s *LocalSource) Fetch(ctx context.Context, loc resource.Locator, kind resource.Kind) (any, error) {
	return s.fetch(ctx, s.base.JoinPath(string(loc)), kind)
}

// FetchConfig retrieves the raw bytes of a configuration document. A
// cache-defeating query parameter forces freshness; data fetches do not use
// it so that ordinary HTTP caching stays effective.
func (s *LocalSource) FetchConfig(ctx context.Context, path string) ([]byte, error) {
	u := s.base.JoinPath(string(resource.Normalize(path)))
	q := u.Query()
	q.Set("t", strconv.FormatInt(time.Now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	raw, _, err := s.get(ctx, u)
	return raw, err
}

func (s *LocalSource) fetch(ctx context.Context, u *url.URL, kind resource.Kind) (any, error) {
	raw, contentType, err := s.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if kind.Binary() {
		if kind == resource.KindBlob {
			return &resource.Blob{Data: raw, ContentType: contentType}, nil
		}
		return raw, nil
	}
	return decodeText(string(raw), kind)
}

func (s *LocalSource) get(ctx context.Context, u *url.URL) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", loaderror.FromResponse(resp.StatusCode, body)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// Bind returns a Source fetching the single resource at loc.
func (s *LocalSource) Bind(loc resource.Locator) Source {
	return &boundLocal{src: s, loc: loc}
}

type boundLocal struct {
	src *LocalSource
	loc resource.Locator
}

func (b *boundLocal) Fetch(ctx context.Context, kind resource.Kind) (any, error) {
	return b.src.Fetch(ctx, b.loc, kind)
}

func (b *boundLocal) Provenance() resource.Provenance {
	return resource.Local
}

func (b *boundLocal) String() string {
	return "local:" + string(b.loc)
}
