// Package scrape runs document-ingestion batches against the registry:
// discovered links are validated, metadata-only gaps patched in place, and
// truly missing artifacts downloaded under a bounded concurrency gate.
package scrape

import (
	"context"

	"github.com/qanoon-labs/qanoon-cli/internal/model"
)

// DiscoveredLink is one artifact a source adapter found on a listing page.
type DiscoveredLink struct {
	Title       string
	SourcePage  string
	URL         string
	ContentType model.ContentType
	Section     string
	Year        *int
	Court       string
	Language    string
}

// Source is an external site adapter for one government portal. The DOM
// scraping and PDF link extraction live behind this interface; the runner
// only sees the discovered links.
type Source interface {
	// Name returns the registry origin tag for this portal,
	// e.g. "pakistan-code" or "supremecourt".
	Name() string

	// DiscoverLinks walks the portal's listing pages and returns every
	// artifact link found.
	DiscoverLinks(ctx context.Context) ([]DiscoveredLink, error)
}

// StaticSource is a Source over a fixed link list. Used by tests and by
// file-driven backfills where links were discovered out of band.
type StaticSource struct {
	SourceName string
	Links      []DiscoveredLink
}

func (s *StaticSource) Name() string {
	return s.SourceName
}

func (s *StaticSource) DiscoverLinks(_ context.Context) ([]DiscoveredLink, error) {
	return s.Links, nil
}
