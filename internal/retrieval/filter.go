// Package retrieval holds the adaptive score-based chunk selection between
// similarity search and generation.
package retrieval

import (
	"go.uber.org/zap"

	"github.com/qanoon-labs/qanoon-cli/internal/model"
)

// FilterConfig tunes the relevance filter.
type FilterConfig struct {
	// MinChunks is the positional floor: the top N chunks are always kept
	// and inputs at or under N pass through unchanged.
	MinChunks int

	// RelativeMargin keeps chunks scoring within this distance of the best.
	RelativeMargin float64

	// AbsoluteThreshold keeps chunks above an intrinsic quality bar.
	AbsoluteThreshold float64
}

// DefaultFilterConfig returns the tuned production thresholds.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinChunks:         10,
		RelativeMargin:    0.1,
		AbsoluteThreshold: 0.5,
	}
}

// Filter reduces a ranked candidate list to the subset worth paying
// generation cost on. Input must be sorted descending by score; output
// preserves that order, so callers can assign stable 1-based citation
// positions from it.
//
// A chunk is kept if ANY of these holds:
//   - its rank is within the MinChunks floor
//   - its score is within RelativeMargin of the best score
//   - its score is above the arithmetic mean of all scores
//   - its score exceeds AbsoluteThreshold
//
// A fixed top-K drops relevant chunks when many candidates are near-tied,
// and a fixed cutoff admits noise when the best match is mediocre; the
// four-way OR adapts to both distributions while guaranteeing a non-empty,
// bounded-minimum result.
func Filter(chunks []model.RetrievedChunk, cfg FilterConfig) []model.RetrievedChunk {
	if cfg.MinChunks <= 0 {
		cfg.MinChunks = DefaultFilterConfig().MinChunks
	}
	if len(chunks) <= cfg.MinChunks {
		return chunks
	}

	highest := chunks[0].Score
	var sum float64
	for _, c := range chunks {
		sum += c.Score
	}
	average := sum / float64(len(chunks))
	relative := highest - cfg.RelativeMargin

	kept := make([]model.RetrievedChunk, 0, len(chunks))
	for i, c := range chunks {
		switch {
		case i < cfg.MinChunks:
			kept = append(kept, c)
		case c.Score > relative:
			kept = append(kept, c)
		case c.Score > average:
			kept = append(kept, c)
		case c.Score > cfg.AbsoluteThreshold:
			kept = append(kept, c)
		}
	}

	zap.L().Debug("retrieval: filtered candidates",
		zap.Int("in", len(chunks)),
		zap.Int("out", len(kept)),
		zap.Float64("highest", highest),
		zap.Float64("average", average),
	)
	return kept
}
