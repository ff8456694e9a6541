// Package translate provides a client for a LibreTranslate-compatible
// translation endpoint. Queries arrive in Urdu as often as English; the
// embedding model only understands English, so the pipeline normalizes
// through this client before embedding.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"

	"github.com/qanoon-labs/qanoon-cli/internal/resilience"
)

// Result is a translation outcome. Translated is false when the text was
// already in the target language and passed through unchanged.
type Result struct {
	Text       string
	Detected   language.Tag
	Translated bool
}

// Client translates text into the pipeline's working language.
type Client interface {
	Translate(ctx context.Context, text string) (*Result, error)
}

// Option configures the translate client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTarget overrides the target language (default English).
func WithTarget(tag language.Tag) Option {
	return func(c *httpClient) {
		c.target = tag
	}
}

type httpClient struct {
	baseURL string
	apiKey  string
	target  language.Tag
	http    *http.Client
}

// NewClient creates a translation client for a LibreTranslate-compatible
// server at baseURL.
func NewClient(baseURL, apiKey string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		target:  language.English,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type translateResponse struct {
	TranslatedText   string `json:"translatedText"`
	DetectedLanguage struct {
		Language   string  `json:"language"`
		Confidence float64 `json:"confidence"`
	} `json:"detectedLanguage"`
}

func (c *httpClient) Translate(ctx context.Context, text string) (*Result, error) {
	target, _ := c.target.Base()

	payload, err := json.Marshal(map[string]any{
		"q":       text,
		"source":  "auto",
		"target":  target.String(),
		"format":  "text",
		"api_key": c.apiKey,
	})
	if err != nil {
		return nil, eris.Wrap(err, "translate: marshal request")
	}

	body, err := resilience.DoVal(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/translate", bytes.NewReader(payload))
		if err != nil {
			return nil, eris.Wrap(err, "translate: create request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(err, 0)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "translate: read response")
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(
				eris.Errorf("translate: http %d", resp.StatusCode), resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, eris.Errorf("translate: http %d: %s", resp.StatusCode, string(data))
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	var parsed translateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "translate: decode response")
	}

	detected, err := language.Parse(parsed.DetectedLanguage.Language)
	if err != nil {
		detected = language.Und
	}

	res := &Result{
		Text:     parsed.TranslatedText,
		Detected: detected,
	}

	detectedBase, _ := detected.Base()
	if detectedBase != target {
		res.Translated = true
	} else {
		// Already in the target language: keep the caller's exact text.
		res.Text = text
	}
	return res, nil
}
