package model

import "time"

// ContentType classifies the kind of legal document a record describes.
type ContentType string

const (
	ContentTypeStatute   ContentType = "statute"
	ContentTypeOrdinance ContentType = "ordinance"
	ContentTypeRules     ContentType = "rules"
	ContentTypeJudgment  ContentType = "judgment"
)

// DefaultSourceWebsite is the origin tag applied when a scraper does not
// identify itself.
const DefaultSourceWebsite = "pakistan-code"

// ProcessingStatus tracks which downstream preprocessing stages have run
// for a document. Each flag is advanced independently by an external stage.
type ProcessingStatus struct {
	TextExtracted bool `json:"text_extracted"`
	Cleaned       bool `json:"cleaned"`
	Chunked       bool `json:"chunked"`
	Embedded      bool `json:"embedded"`
}

// DocumentRecord is one catalogued source artifact and its processing lineage.
// SourceURL is the dedup key: at most one record may exist per SourceURL.
type DocumentRecord struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	SourcePage       string           `json:"source_page"`
	SourceURL        string           `json:"source_url"`
	SourceWebsite    string           `json:"source_website"`
	RawPath          string           `json:"raw_path"`
	TextPath         *string          `json:"text_path"`
	DownloadDate     string           `json:"download_date"`
	ContentType      ContentType      `json:"content_type"`
	Section          string           `json:"section,omitempty"`
	Year             *int             `json:"year"`
	Court            string           `json:"court,omitempty"`
	FileSize         *int64           `json:"file_size"`
	FileFormat       string           `json:"file_format"`
	Language         string           `json:"language"`
	Status           string           `json:"status"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	LastModified     string           `json:"last_modified,omitempty"`
}

// Registry is the full persisted collection of DocumentRecords plus
// aggregate counts. TotalDocuments and Sources are derived fields,
// recomputed on every save; Documents preserves discovery order.
type Registry struct {
	Version        string           `json:"version"`
	LastUpdated    string           `json:"last_updated"`
	TotalDocuments int              `json:"total_documents"`
	Sources        map[string]int   `json:"sources"`
	Documents      []DocumentRecord `json:"documents"`
}

// RegistryVersion is the informational schema version stamped into new
// registries. No migration logic keys off it.
const RegistryVersion = "1.0"

// NewRegistry returns an empty registry with the current shape.
func NewRegistry() *Registry {
	return &Registry{
		Version:        RegistryVersion,
		LastUpdated:    time.Now().UTC().Format(time.RFC3339),
		TotalDocuments: 0,
		Sources:        map[string]int{},
		Documents:      []DocumentRecord{},
	}
}

// Recount recomputes the derived aggregate fields from Documents. Callers
// must never hand-maintain TotalDocuments or Sources; this is the mechanism
// that keeps counts correct even when Documents is mutated directly.
func (r *Registry) Recount() {
	r.TotalDocuments = len(r.Documents)
	sources := make(map[string]int, len(r.Sources))
	for _, doc := range r.Documents {
		sources[doc.SourceWebsite]++
	}
	r.Sources = sources
	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)
}

// RegistryStats is a read-only aggregate view over the registry, computed
// fresh on every call.
type RegistryStats struct {
	Total         int            `json:"total"`
	BySource      map[string]int `json:"by_source"`
	ByContentType map[string]int `json:"by_content_type"`
	ByStatus      map[string]int `json:"by_status"`
}

// ValidationResult is the three-way outcome of checking a catalog entry:
// valid, metadata-patch-only, or redownload.
type ValidationResult struct {
	IsValid         bool     `json:"is_valid"`
	MissingFields   []string `json:"missing_fields"`
	NeedsRedownload bool     `json:"needs_redownload"`
	Reason          string   `json:"reason"`
}
