// Package fetcher downloads document artifacts from government portals to
// durable storage.
package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for retrieving remote artifacts.
type Fetcher interface {
	// Download fetches the URL and returns the response body. Redirects
	// are followed; non-success statuses fail.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path,
	// creating parent directories. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}
