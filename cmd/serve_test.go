package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qanoon-labs/qanoon-cli/internal/model"
	"github.com/qanoon-labs/qanoon-cli/internal/pipeline"
	"github.com/qanoon-labs/qanoon-cli/internal/registry"
	"github.com/qanoon-labs/qanoon-cli/internal/store"
	"github.com/qanoon-labs/qanoon-cli/pkg/qdrant"
)

type stubEmbedder struct{ err error }

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{0.1, 0.2}, nil
}

type stubSearch struct{ hits []qdrant.ScoredPoint }

func (s *stubSearch) EnsureCollection(context.Context, string, int) error { return nil }
func (s *stubSearch) Search(context.Context, string, []float32, int) ([]qdrant.ScoredPoint, error) {
	return s.hits, nil
}

type stubGenerator struct{ answer string }

func (s *stubGenerator) Generate(context.Context, string, string) (string, error) {
	return s.answer, nil
}

func newTestEnv(t *testing.T, embedErr error) *queryEnv {
	t.Helper()

	queryLog, err := store.NewSQLite(filepath.Join(t.TempDir(), "querylog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { queryLog.Close() })
	require.NoError(t, queryLog.Migrate(context.Background()))

	hits := []qdrant.ScoredPoint{
		{ID: "c1", Score: 0.9, Payload: map[string]any{
			"chunk": "Whoever commits theft shall be punished.",
			"title": "Pakistan Penal Code",
			"year":  float64(1860),
		}},
	}

	search := &stubSearch{hits: hits}
	p := pipeline.New(pipeline.Config{Collection: "legal_chunks"},
		nil,
		&stubEmbedder{err: embedErr},
		search,
		&stubGenerator{answer: "Theft is punished under [1]."},
	)

	manager := registry.NewManager(registry.NewMemStore())
	year := 1860
	_, err = manager.Add(model.DocumentRecord{
		SourceURL:  "https://pakistancode.gov.pk/ppc.pdf",
		Title:      "Pakistan Penal Code",
		Year:       &year,
		SourcePage: "https://pakistancode.gov.pk/ppc",
	})
	require.NoError(t, err)

	return &queryEnv{Registry: manager, Pipeline: p, QueryLog: queryLog, Search: search}
}

func TestHealthEndpoint(t *testing.T) {
	ts := httptest.NewServer(newRouter(newTestEnv(t, nil)))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAskEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(newRouter(env))
	defer ts.Close()

	body, _ := json.Marshal(map[string]any{"query": "what is the punishment for theft"})
	resp, err := http.Post(ts.URL+"/api/ask", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result model.QueryResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "Theft is punished under [1].", result.Answer)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, 1, result.Sources[0].Position)
	assert.Equal(t, "Pakistan Penal Code", result.Sources[0].Title)

	// The answered query lands in the log.
	n, err := env.QueryLog.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAskEndpointRejectsShortQuery(t *testing.T) {
	ts := httptest.NewServer(newRouter(newTestEnv(t, nil)))
	defer ts.Close()

	body, _ := json.Marshal(map[string]any{"query": "hi"})
	resp, err := http.Post(ts.URL+"/api/ask", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAskEndpointRejectsBadBody(t *testing.T) {
	ts := httptest.NewServer(newRouter(newTestEnv(t, nil)))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/ask", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAskEndpointUpstreamFailure(t *testing.T) {
	ts := httptest.NewServer(newRouter(newTestEnv(t, errors.New("embedding service down"))))
	defer ts.Close()

	body, _ := json.Marshal(map[string]any{"query": "what is the punishment for theft"})
	resp, err := http.Post(ts.URL+"/api/ask", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Contains(t, payload["error"], "embed")
}

func TestDocumentsEndpoint(t *testing.T) {
	ts := httptest.NewServer(newRouter(newTestEnv(t, nil)))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/documents")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Total     int                      `json:"total"`
		Documents []registry.DocumentGroup `json:"documents"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, 1, payload.Total)
	require.Len(t, payload.Documents, 1)
	assert.Equal(t, "Pakistan Penal Code", payload.Documents[0].Title)
}

func TestStatsEndpoint(t *testing.T) {
	ts := httptest.NewServer(newRouter(newTestEnv(t, nil)))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Registry        model.RegistryStats `json:"registry"`
		QueriesAnswered int                 `json:"queries_answered"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, 1, payload.Registry.Total)
	assert.Zero(t, payload.QueriesAnswered)
}
