package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/qanoon-labs/qanoon-cli/internal/model"
)

// Manager is the ingestion API over a registry Store: create and update
// DocumentRecords with defaulting and lookup. All mutations go through a
// full load→mutate→save cycle; a mutex serializes those cycles within the
// process so two in-flight ingestions cannot overwrite each other with a
// stale load. Cross-process writers remain uncoordinated.
type Manager struct {
	mu    sync.Mutex
	store Store

	// newID generates record ids: collision-resistant and sortable by
	// creation order. Swappable so tests can inject deterministic ids.
	newID func() string

	// now is the clock seam for download/modified stamps.
	now func() time.Time
}

// NewManager creates a Manager over the given store.
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		newID: defaultNewID,
		now:   time.Now,
	}
}

// WithIDFunc overrides id generation. Test seam.
func (m *Manager) WithIDFunc(fn func() string) *Manager {
	m.newID = fn
	return m
}

// WithClock overrides the timestamp source. Test seam.
func (m *Manager) WithClock(fn func() time.Time) *Manager {
	m.now = fn
	return m
}

// defaultNewID builds an id with a time prefix for creation-order sorting
// and a UUID suffix for uniqueness.
func defaultNewID() string {
	return fmt.Sprintf("doc_%d_%s", time.Now().UnixNano(), uuid.NewString()[:8])
}

// DocumentExists reports whether a record with the given source_url exists.
func (m *Manager) DocumentExists(sourceURL string) (bool, error) {
	rec, err := m.GetBySourceURL(sourceURL)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// GetBySourceURL returns the record with the given source_url, or nil.
func (m *Manager) GetBySourceURL(sourceURL string) (*model.DocumentRecord, error) {
	reg, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	for i := range reg.Documents {
		if reg.Documents[i].SourceURL == sourceURL {
			rec := reg.Documents[i]
			return &rec, nil
		}
	}
	return nil, nil
}

// GetByID returns the record with the given id, or nil.
func (m *Manager) GetByID(id string) (*model.DocumentRecord, error) {
	reg, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	for i := range reg.Documents {
		if reg.Documents[i].ID == id {
			rec := reg.Documents[i]
			return &rec, nil
		}
	}
	return nil, nil
}

// Add builds a new DocumentRecord from info, filling every unset field with
// its registry default so records are always well-formed, appends it in
// discovery order and persists. Returns the generated id.
//
// Add does not dedupe: callers must check DocumentExists first. The dedup
// contract is at most one record per source_url.
func (m *Manager) Add(info model.DocumentRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reg, err := m.store.Load()
	if err != nil {
		return "", err
	}

	rec := info
	rec.ID = m.newID()
	applyDefaults(&rec, m.now())

	reg.Documents = append(reg.Documents, rec)
	if err := m.store.Save(reg); err != nil {
		return "", err
	}

	zap.L().Info("registry: document added",
		zap.String("id", rec.ID),
		zap.String("source_url", rec.SourceURL),
		zap.String("source_website", rec.SourceWebsite),
	)
	return rec.ID, nil
}

func applyDefaults(rec *model.DocumentRecord, now time.Time) {
	if rec.Title == "" {
		rec.Title = "Untitled"
	}
	if rec.SourceWebsite == "" {
		rec.SourceWebsite = model.DefaultSourceWebsite
	}
	if rec.ContentType == "" {
		rec.ContentType = model.ContentTypeStatute
	}
	if rec.FileFormat == "" {
		rec.FileFormat = "pdf"
	}
	if rec.Language == "" {
		rec.Language = "english"
	}
	if rec.Status == "" {
		rec.Status = "downloaded"
	}
	if rec.DownloadDate == "" {
		rec.DownloadDate = now.UTC().Format(time.RFC3339)
	}
}

// Update merges patch into the record with the given id and persists.
// Returns false without error when the id is unknown; callers treat that as
// a normal outcome, not a failure.
func (m *Manager) Update(id string, patch Patch) (bool, error) {
	return m.patchWhere(func(rec *model.DocumentRecord) bool {
		return rec.ID == id
	}, patch)
}

// UpdateBySourceURL merges patch into the record with the given source_url.
// Used when a scraper re-discovers a known URL and wants to fill gaps
// without minting a new id.
func (m *Manager) UpdateBySourceURL(sourceURL string, patch Patch) (bool, error) {
	return m.patchWhere(func(rec *model.DocumentRecord) bool {
		return rec.SourceURL == sourceURL
	}, patch)
}

func (m *Manager) patchWhere(match func(*model.DocumentRecord) bool, patch Patch) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reg, err := m.store.Load()
	if err != nil {
		return false, err
	}

	for i := range reg.Documents {
		if !match(&reg.Documents[i]) {
			continue
		}
		patch.Apply(&reg.Documents[i])
		reg.Documents[i].LastModified = m.now().UTC().Format(time.RFC3339)
		if err := m.store.Save(reg); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// MarkProcessed advances one processing flag on the record with the given
// source_url. Stage is one of text_extracted, cleaned, chunked, embedded.
func (m *Manager) MarkProcessed(sourceURL, stage string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reg, err := m.store.Load()
	if err != nil {
		return false, err
	}

	for i := range reg.Documents {
		if reg.Documents[i].SourceURL != sourceURL {
			continue
		}
		ps := &reg.Documents[i].ProcessingStatus
		switch stage {
		case "text_extracted":
			ps.TextExtracted = true
		case "cleaned":
			ps.Cleaned = true
		case "chunked":
			ps.Chunked = true
		case "embedded":
			ps.Embedded = true
		default:
			return false, eris.Errorf("registry: unknown processing stage %q", stage)
		}
		reg.Documents[i].LastModified = m.now().UTC().Format(time.RFC3339)
		if err := m.store.Save(reg); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// ListAll returns every catalog record in discovery order.
func (m *Manager) ListAll() ([]model.DocumentRecord, error) {
	reg, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	return reg.Documents, nil
}

// GetBySource returns all records from one source website, in discovery order.
func (m *Manager) GetBySource(source string) ([]model.DocumentRecord, error) {
	reg, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	var out []model.DocumentRecord
	for _, rec := range reg.Documents {
		if rec.SourceWebsite == source {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Stats computes aggregate counts fresh from the current documents.
func (m *Manager) Stats() (*model.RegistryStats, error) {
	reg, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	stats := &model.RegistryStats{
		Total:         len(reg.Documents),
		BySource:      map[string]int{},
		ByContentType: map[string]int{},
		ByStatus:      map[string]int{},
	}
	for _, rec := range reg.Documents {
		stats.BySource[rec.SourceWebsite]++
		stats.ByContentType[string(rec.ContentType)]++
		stats.ByStatus[rec.Status]++
	}
	return stats, nil
}

// DedupeByRawPath drops later records that share a raw_path with an earlier
// one and persists the compacted registry. Returns the number removed.
func (m *Manager) DedupeByRawPath() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reg, err := m.store.Load()
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool, len(reg.Documents))
	unique := make([]model.DocumentRecord, 0, len(reg.Documents))
	for _, rec := range reg.Documents {
		if seen[rec.RawPath] {
			continue
		}
		seen[rec.RawPath] = true
		unique = append(unique, rec)
	}

	removed := len(reg.Documents) - len(unique)
	if removed == 0 {
		return 0, nil
	}

	reg.Documents = unique
	if err := m.store.Save(reg); err != nil {
		return 0, err
	}

	zap.L().Info("registry: removed duplicate entries", zap.Int("removed", removed))
	return removed, nil
}
