package fetch

import (
	"context"
	"io"
	"net/http"

	dErrors "sdnscreen/pkg/domain-errors"
)

// HTTPFetcher reads the dataset from a remote HTTP endpoint.
type HTTPFetcher struct {
	url    string
	client *http.Client
}

// NewHTTPFetcher creates a fetcher for the given URL. The client's
// timeout bounds the whole request including body read.
func NewHTTPFetcher(url string, opts Options) *HTTPFetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPFetcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) Source() string {
	return f.url
}

// Fetch performs a single GET against the source URL. Non-2xx
// responses fail; there is no retry here.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeFetchFailed, "build dataset request")
	}

	resp, err := f.client.Do(request)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeFetchFailed, "fetch dataset")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, dErrors.Newf(dErrors.CodeFetchFailed, "fetch dataset: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeFetchFailed, "read dataset body")
	}

	return data, nil
}
