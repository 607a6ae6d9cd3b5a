package fetch

import (
	"context"
	"io"
	"log"
	"net/http"

	"github.com/mogaika/gltf_loader/config"
)

type HTTPFetcher struct {
	Client *http.Client
}

func NewHTTPFetcher(c *http.Client) *HTTPFetcher {
	if c == nil {
		c = http.DefaultClient
	}
	return &HTTPFetcher{Client: c}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, wrapTransport(err, "Bad request for %q", uri)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, wrapTransport(err, "GET %q", uri)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, transportErrorf("GET %q: status %s", uri, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapTransport(err, "GET %q: reading body", uri)
	}
	if config.IsVerbose() {
		log.Printf("[fetch] GET %s: %d bytes", uri, len(data))
	}
	return data, nil
}

var _ Fetcher = (*HTTPFetcher)(nil)
