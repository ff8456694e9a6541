package scrape

import (
	"context"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/qanoon-labs/qanoon-cli/internal/fetcher"
	"github.com/qanoon-labs/qanoon-cli/internal/model"
	"github.com/qanoon-labs/qanoon-cli/internal/registry"
)

// Report tallies one batch run. One failing document never aborts its
// siblings; it lands in Errors and the batch continues.
type Report struct {
	Source     string `json:"source"`
	Discovered int    `json:"discovered"`
	Skipped    int    `json:"skipped"`
	Patched    int    `json:"patched"`
	Downloaded int    `json:"downloaded"`
	Errors     int    `json:"errors"`
}

// Runner executes ingestion batches for one or more sources.
type Runner struct {
	manager *registry.Manager
	fetcher fetcher.Fetcher
	gate    *Gate
	dataDir string
}

// NewRunner creates a Runner. dataDir is the root under which raw artifacts
// are stored (raw/<source>/<file>) and against which raw_path resolves.
func NewRunner(manager *registry.Manager, f fetcher.Fetcher, gate *Gate, dataDir string) *Runner {
	return &Runner{
		manager: manager,
		fetcher: f,
		gate:    gate,
		dataDir: dataDir,
	}
}

// Run discovers links from src and processes each one: valid catalog
// entries are skipped without touching the network, metadata-only gaps are
// patched in place, and missing artifacts are downloaded and ingested under
// the concurrency gate.
func (r *Runner) Run(ctx context.Context, src Source) (*Report, error) {
	log := zap.L().With(zap.String("source", src.Name()))

	links, err := src.DiscoverLinks(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: discover links for %s", src.Name())
	}
	discovered := len(links)

	// Sources sometimes list the same artifact on more than one page. Two
	// in-flight workers for one URL would race the exists check and mint
	// duplicate records, so only the first occurrence enters the batch.
	links = dedupeByURL(links)
	if dropped := discovered - len(links); dropped > 0 {
		log.Warn("scrape: dropped duplicate links", zap.Int("count", dropped))
	}
	log.Info("scrape: discovered links", zap.Int("count", discovered))

	var skipped, patched, downloaded, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for _, link := range links {
		link := link
		g.Go(func() error {
			outcome, err := r.processLink(gctx, src.Name(), link)
			if err != nil {
				failed.Add(1)
				log.Error("scrape: document failed",
					zap.String("url", link.URL),
					zap.Error(err),
				)
				return nil // isolate per-document failures
			}
			switch outcome {
			case outcomeSkipped:
				skipped.Add(1)
			case outcomePatched:
				patched.Add(1)
			case outcomeDownloaded:
				downloaded.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "scrape: batch")
	}

	report := &Report{
		Source:     src.Name(),
		Discovered: discovered,
		Skipped:    int(skipped.Load()),
		Patched:    int(patched.Load()),
		Downloaded: int(downloaded.Load()),
		Errors:     int(failed.Load()),
	}
	log.Info("scrape: batch complete",
		zap.Int("discovered", report.Discovered),
		zap.Int("skipped", report.Skipped),
		zap.Int("patched", report.Patched),
		zap.Int("downloaded", report.Downloaded),
		zap.Int("errors", report.Errors),
	)
	return report, nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomePatched
	outcomeDownloaded
)

func (r *Runner) processLink(ctx context.Context, source string, link DiscoveredLink) (outcome, error) {
	res, err := r.manager.Validate(link.URL, r.dataDir)
	if err != nil {
		return 0, err
	}

	if res.IsValid {
		return outcomeSkipped, nil
	}

	// Existing artifact with metadata gaps: patch in place, skip the network.
	if !res.NeedsRedownload {
		ok, err := r.manager.UpdateBySourceURL(link.URL, patchFromLink(link))
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, eris.Errorf("scrape: record vanished for %s", link.URL)
		}
		return outcomePatched, nil
	}

	// Download + ingest is the critical section the gate bounds.
	if err := r.gate.Enter(ctx); err != nil {
		return 0, eris.Wrap(err, "scrape: gate")
	}
	defer r.gate.Leave()

	rawPath := filepath.Join("raw", source, artifactFilename(link.URL))
	size, err := r.fetcher.DownloadToFile(ctx, link.URL, filepath.Join(r.dataDir, rawPath))
	if err != nil {
		return 0, eris.Wrapf(err, "scrape: download %s", link.URL)
	}

	exists, err := r.manager.DocumentExists(link.URL)
	if err != nil {
		return 0, err
	}
	if exists {
		// Known URL whose artifact was gone: repair the record.
		patch := patchFromLink(link)
		patch.RawPath = registry.Ptr(rawPath)
		patch.FileSize = registry.Ptr(size)
		patch.Status = registry.Ptr("downloaded")
		if _, err := r.manager.UpdateBySourceURL(link.URL, patch); err != nil {
			return 0, err
		}
		return outcomeDownloaded, nil
	}

	_, err = r.manager.Add(model.DocumentRecord{
		Title:         link.Title,
		SourcePage:    link.SourcePage,
		SourceURL:     link.URL,
		SourceWebsite: source,
		RawPath:       rawPath,
		ContentType:   link.ContentType,
		Section:       link.Section,
		Year:          link.Year,
		Court:         link.Court,
		Language:      link.Language,
		FileSize:      &size,
		FileFormat:    strings.TrimPrefix(path.Ext(artifactFilename(link.URL)), "."),
	})
	if err != nil {
		return 0, err
	}
	return outcomeDownloaded, nil
}

// dedupeByURL keeps the first occurrence of each source URL.
func dedupeByURL(links []DiscoveredLink) []DiscoveredLink {
	seen := make(map[string]struct{}, len(links))
	out := make([]DiscoveredLink, 0, len(links))
	for _, link := range links {
		if _, ok := seen[link.URL]; ok {
			continue
		}
		seen[link.URL] = struct{}{}
		out = append(out, link)
	}
	return out
}

func patchFromLink(link DiscoveredLink) registry.Patch {
	p := registry.Patch{}
	if link.Title != "" {
		p.Title = registry.Ptr(link.Title)
	}
	if link.SourcePage != "" {
		p.SourcePage = registry.Ptr(link.SourcePage)
	}
	if link.ContentType != "" {
		p.ContentType = registry.Ptr(link.ContentType)
	}
	if link.Section != "" {
		p.Section = registry.Ptr(link.Section)
	}
	if link.Year != nil {
		p.Year = link.Year
	}
	if link.Court != "" {
		p.Court = registry.Ptr(link.Court)
	}
	if link.Language != "" {
		p.Language = registry.Ptr(link.Language)
	}
	return p
}

// artifactFilename derives a stable local filename from the artifact URL.
func artifactFilename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || path.Base(u.Path) == "/" || path.Base(u.Path) == "." {
		return "document.pdf"
	}
	name := path.Base(u.Path)
	if path.Ext(name) == "" {
		name += ".pdf"
	}
	return name
}
