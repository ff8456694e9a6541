// Package store persists a log of answered queries for operational review:
// what was asked, how much context it used, and how long it took.
package store

import (
	"context"
	"time"
)

// QueryLogEntry is one answered query.
type QueryLogEntry struct {
	ID              string    `json:"id"`
	Query           string    `json:"query"`
	Translated      bool      `json:"translated"`
	ChunksRetrieved int       `json:"chunks_retrieved"`
	ChunksInContext int       `json:"chunks_in_context"`
	SourcesCited    int       `json:"sources_cited"`
	AnswerChars     int       `json:"answer_chars"`
	DurationMS      int64     `json:"duration_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

// QueryLogFilter specifies criteria for listing log entries.
type QueryLogFilter struct {
	Since  time.Time `json:"since,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

// QueryLog defines the persistence interface for answered queries.
type QueryLog interface {
	Record(ctx context.Context, entry QueryLogEntry) (*QueryLogEntry, error)
	List(ctx context.Context, filter QueryLogFilter) ([]QueryLogEntry, error)
	Count(ctx context.Context) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}
