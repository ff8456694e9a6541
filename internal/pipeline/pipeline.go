// Package pipeline sequences one user question end to end: translate,
// embed, search, filter, generate, and assemble citation-accurate sources.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/qanoon-labs/qanoon-cli/internal/model"
	"github.com/qanoon-labs/qanoon-cli/internal/retrieval"
	"github.com/qanoon-labs/qanoon-cli/pkg/embedding"
	"github.com/qanoon-labs/qanoon-cli/pkg/generation"
	"github.com/qanoon-labs/qanoon-cli/pkg/qdrant"
	"github.com/qanoon-labs/qanoon-cli/pkg/translate"
)

const (
	// Query bounds are in runes, not bytes. Urdu queries are multibyte.
	minQueryLen = 3
	maxQueryLen = 1000

	// defaultCandidatePool is the similarity-search limit, intentionally
	// wider than the final context so the retrieval filter has signal.
	defaultCandidatePool = 50

	noResultsAnswer = "No relevant documents were found in the legal corpus for this query. " +
		"Try rephrasing the question or using different legal terms."
)

const systemPrompt = `You are a legal research assistant for Pakistani law. Answer the question using ONLY the numbered context passages provided. Cite every claim with the passage number in square brackets, for example [1] or [3]. If the context does not contain the answer, say so plainly. Do not invent statutes, case names, or section numbers.`

// Config holds the pipeline settings.
type Config struct {
	// Collection is the vector collection holding the corpus chunks.
	Collection string

	CandidatePool int

	Filter retrieval.FilterConfig
}

// Pipeline answers questions over the embedded legal corpus.
type Pipeline struct {
	cfg        Config
	translator translate.Client
	embedder   embedding.Client
	search     qdrant.Client
	generator  generation.Client
}

// New creates a query pipeline from its collaborators. The translator may be
// nil, in which case queries go to the embedder as-is.
func New(cfg Config, translator translate.Client, embedder embedding.Client, search qdrant.Client, generator generation.Client) *Pipeline {
	if cfg.CandidatePool <= 0 {
		cfg.CandidatePool = defaultCandidatePool
	}
	if cfg.Filter.MinChunks <= 0 {
		cfg.Filter = retrieval.DefaultFilterConfig()
	}
	return &Pipeline{
		cfg:        cfg,
		translator: translator,
		embedder:   embedder,
		search:     search,
		generator:  generator,
	}
}

// Ask runs one query end to end. topK overrides the candidate pool when
// positive. The generation model always sees the original query text;
// translation only feeds the embedding step.
func (p *Pipeline) Ask(ctx context.Context, query string, topK int) (*model.QueryResult, error) {
	query = strings.TrimSpace(query)
	if n := utf8.RuneCountInString(query); n < minQueryLen {
		return nil, &ValidationError{Field: "query", Reason: fmt.Sprintf("must be at least %d characters", minQueryLen)}
	} else if n > maxQueryLen {
		return nil, &ValidationError{Field: "query", Reason: fmt.Sprintf("must be at most %d characters", maxQueryLen)}
	}

	pool := p.cfg.CandidatePool
	if topK > 0 {
		pool = topK
	}

	start := time.Now()

	searchText := query
	translated := false
	if p.translator != nil {
		res, err := p.translator.Translate(ctx, query)
		if err != nil {
			return nil, &UpstreamError{Step: "translate", Err: err}
		}
		searchText = res.Text
		translated = res.Translated
	}

	vector, err := p.embedder.Embed(ctx, searchText)
	if err != nil {
		return nil, &UpstreamError{Step: "embed", Err: err}
	}

	hits, err := p.search.Search(ctx, p.cfg.Collection, vector, pool)
	if err != nil {
		return nil, &UpstreamError{Step: "search", Err: err}
	}

	if len(hits) == 0 {
		zap.L().Info("query matched no documents", zap.String("query", query))
		return &model.QueryResult{
			Answer:  noResultsAnswer,
			Sources: []model.Source{},
			Query:   query,
			Metadata: map[string]any{
				"chunks_retrieved": 0,
				"duration_ms":      time.Since(start).Milliseconds(),
			},
		}, nil
	}

	chunks := make([]model.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		chunks = append(chunks, chunkFromPoint(hit))
	}
	filtered := retrieval.Filter(chunks, p.cfg.Filter)

	answer, err := p.generator.Generate(ctx, systemPrompt, buildPrompt(query, filtered))
	if err != nil {
		return nil, &UpstreamError{Step: "generate", Err: err}
	}

	cited := retrieval.ExtractCitations(answer, len(filtered))
	sources := make([]model.Source, 0, len(cited))
	for _, pos := range cited {
		sources = append(sources, sourceFromChunk(filtered[pos-1], pos))
	}

	zap.L().Info("query answered",
		zap.Bool("translated", translated),
		zap.Int("retrieved", len(chunks)),
		zap.Int("in_context", len(filtered)),
		zap.Int("cited", len(sources)),
		zap.Duration("duration", time.Since(start)),
	)

	return &model.QueryResult{
		Answer:  answer,
		Sources: sources,
		Query:   query,
		Metadata: map[string]any{
			"chunks_retrieved":  len(chunks),
			"chunks_in_context": len(filtered),
			"translated":        translated,
			"duration_ms":       time.Since(start).Milliseconds(),
		},
	}, nil
}

// buildPrompt numbers the context passages so the model can cite them by
// position.
func buildPrompt(query string, chunks []model.RetrievedChunk) string {
	var sb strings.Builder
	sb.WriteString("Context passages:\n\n")
	for i, c := range chunks {
		fmt.Fprintf(&sb, "[%d] %s", i+1, c.Title)
		if c.Year != nil {
			fmt.Fprintf(&sb, " (%d)", *c.Year)
		}
		sb.WriteString("\n")
		sb.WriteString(c.Chunk)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Question: ")
	sb.WriteString(query)
	return sb.String()
}

func chunkFromPoint(p qdrant.ScoredPoint) model.RetrievedChunk {
	c := model.RetrievedChunk{
		ID:           p.ID,
		Score:        p.Score,
		Chunk:        payloadString(p.Payload, "chunk"),
		Title:        payloadString(p.Payload, "title"),
		Court:        payloadString(p.Payload, "court"),
		DocumentType: payloadString(p.Payload, "document_type"),
		SourceURL:    payloadString(p.Payload, "source_url"),
		SourcePage:   payloadString(p.Payload, "source_page"),
	}
	if c.Chunk == "" {
		c.Chunk = payloadString(p.Payload, "text")
	}
	if y, ok := payloadInt(p.Payload, "year"); ok {
		c.Year = &y
	}
	return c
}

func sourceFromChunk(c model.RetrievedChunk, position int) model.Source {
	return model.Source{
		Position:     position,
		Title:        c.Title,
		Year:         c.Year,
		Court:        c.Court,
		DocumentType: c.DocumentType,
		SourceURL:    c.SourceURL,
		SourcePage:   c.SourcePage,
		Score:        c.Score,
		Excerpt:      excerpt(c.Chunk, 300),
	}
}

func excerpt(text string, max int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max]) + "..."
}

func payloadString(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func payloadInt(payload map[string]any, key string) (int, bool) {
	switch v := payload[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}
