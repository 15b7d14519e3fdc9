package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Fetcher loads the raw bytes behind an asset reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// DefaultMaxBytes caps a single fetched asset.
const DefaultMaxBytes = 8 << 20

// HTTPFetcher fetches http(s) references.
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64
}

// NewHTTPFetcher returns an HTTPFetcher with a client timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		Client:   &http.Client{Timeout: timeout},
		MaxBytes: DefaultMaxBytes,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "image/*")
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", ref, resp.StatusCode)
	}
	return readLimited(resp.Body, f.MaxBytes)
}

// FileFetcher reads local paths and file:// URLs.
type FileFetcher struct {
	MaxBytes int64
}

func (f FileFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := strings.TrimPrefix(ref, "file://")
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return readLimited(fh, f.MaxBytes)
}

// SchemeFetcher routes http(s) references to HTTP and everything else to File.
type SchemeFetcher struct {
	HTTP Fetcher
	File Fetcher
}

// NewSchemeFetcher builds the default fetcher used by the resolver.
func NewSchemeFetcher(timeout time.Duration) SchemeFetcher {
	return SchemeFetcher{
		HTTP: NewHTTPFetcher(timeout),
		File: FileFetcher{MaxBytes: DefaultMaxBytes},
	}
}

func (s SchemeFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if s.HTTP == nil {
			return nil, fmt.Errorf("no http fetcher for %s", ref)
		}
		return s.HTTP.Fetch(ctx, ref)
	}
	if s.File == nil {
		return nil, fmt.Errorf("no file fetcher for %s", ref)
	}
	return s.File.Fetch(ctx, ref)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("asset exceeds %d bytes", limit)
	}
	return data, nil
}
