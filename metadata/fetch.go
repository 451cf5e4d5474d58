package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"tripimg/misc"
)

// metadata files are small, anything bigger is not ours
const maxDocumentSize = 16 << 20

// Fetcher returns raw metadata document.
type Fetcher func(ctx context.Context) ([]byte, error)

// FileFetcher reads document from local file.
func FileFetcher(path string) Fetcher {
	return func(context.Context) ([]byte, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("unable to read image metadata: %w", err)
		}
		return data, nil
	}
}

// HTTPFetcher requests document at path resolved against site base URL.
func HTTPFetcher(client *http.Client, base, path string) Fetcher {
	return func(ctx context.Context) ([]byte, error) {
		bu, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("unable to parse base url: %w", err)
		}
		pu, err := url.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("unable to parse metadata path: %w", err)
		}
		u := bu.ResolveReference(pu).String()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("unable to create request for %q: %w", u, err)
		}
		req.Header.Set("User-Agent", misc.GetUserAgent())
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("unable to request %q: %w", u, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("unexpected status %q for %q", resp.Status, u)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
		if err != nil {
			return nil, fmt.Errorf("unable to read %q: %w", u, err)
		}
		return data, nil
	}
}
