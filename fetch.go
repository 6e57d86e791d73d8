package ucpschema

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// ContextFetcher is the collaborator interface the driver uses to load a
// schema or payload document, whether from disk or over the network. It is
// a superset of refbundle.Fetcher with an explicit context for
// cancellation, per the core's single blocking-point rule.
type ContextFetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// FileFetcher reads local documents from disk and fails closed on anything
// that looks like a URL, so a misconfigured local run gets a clear error
// instead of a silent cross-boundary fetch.
type FileFetcher struct{}

func (FileFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &IoError{Location: location, Err: err}
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return nil, &IoError{Location: location, Err: fmt.Errorf("file fetcher cannot load a URL")}
	}
	b, err := os.ReadFile(location)
	if err != nil {
		return nil, &IoError{Location: location, Err: err}
	}
	return b, nil
}

// HTTPFetcher fetches remote documents over HTTP(S) with a bounded client
// timeout; timeouts and context cancellation surface as IoError rather than
// being retried.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher returns a fetcher with a sensible default timeout.
func NewHTTPFetcher() HTTPFetcher {
	return HTTPFetcher{Client: &http.Client{Timeout: 10 * time.Second}}
}

func (f HTTPFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, &IoError{Location: location, Err: err}
	}
	client := f.Client
	if client == nil {
		client = NewHTTPFetcher().Client
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &IoError{Location: location, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &IoError{Location: location, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &IoError{Location: location, Err: err}
	}
	return b, nil
}

// DispatchFetcher routes a location to HTTPFetcher when it looks like a URL
// and to FileFetcher otherwise, matching how the driver accepts either a
// path or a URL for --schema and self-describing schema_url entries.
type DispatchFetcher struct {
	HTTP HTTPFetcher
	File FileFetcher
}

// NewDispatchFetcher returns a DispatchFetcher with a default HTTPFetcher.
func NewDispatchFetcher() DispatchFetcher {
	return DispatchFetcher{HTTP: NewHTTPFetcher()}
}

func (f DispatchFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return f.HTTP.Fetch(ctx, location)
	}
	return f.File.Fetch(ctx, location)
}
