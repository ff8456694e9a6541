package model

// RetrievedChunk is one similarity-search hit enriched with the registry's
// denormalized document fields. Ephemeral: it lives for a single query.
type RetrievedChunk struct {
	ID           string  `json:"id"`
	Score        float64 `json:"score"`
	Chunk        string  `json:"chunk"`
	Title        string  `json:"title"`
	Year         *int    `json:"year,omitempty"`
	Court        string  `json:"court,omitempty"`
	DocumentType string  `json:"document_type,omitempty"`
	SourceURL    string  `json:"source_url,omitempty"`
	SourcePage   string  `json:"source_page,omitempty"`
}

// Source is a cited context chunk returned alongside an answer. Position is
// the chunk's original 1-based index in the filtered context, so citation
// markers in the answer text stay valid.
type Source struct {
	Position     int     `json:"position"`
	Title        string  `json:"title"`
	Year         *int    `json:"year,omitempty"`
	Court        string  `json:"court,omitempty"`
	DocumentType string  `json:"document_type,omitempty"`
	SourceURL    string  `json:"source_url,omitempty"`
	SourcePage   string  `json:"source_page,omitempty"`
	Score        float64 `json:"score"`
	Excerpt      string  `json:"excerpt,omitempty"`
}

// QueryResult is the response for one question.
type QueryResult struct {
	Answer   string         `json:"answer"`
	Sources  []Source       `json:"sources"`
	Query    string         `json:"query"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
