package embedding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"alcyxob/workout-recommender/internal/logger"
	"alcyxob/workout-recommender/internal/metrics"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultGeminiModel   = "models/text-embedding-004"
	defaultGeminiTimeout = 30 * time.Second
	maxErrorBodyBytes    = 1024
)

// GeminiConfig configures the Gemini embedContent client.
type GeminiConfig struct {
	BaseURL   string
	APIKey    string
	Model     string // e.g. "models/text-embedding-004"
	Dimension int
	Timeout   time.Duration
}

// GeminiClient calls the Gemini embedContent endpoint.
type GeminiClient struct {
	log       *logger.Logger
	baseURL   string
	apiKey    string
	model     string
	dimension int
	http      *http.Client
}

type geminiRequest struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Embedding *struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// NewGeminiClient builds a client, applying defaults for empty fields.
func NewGeminiClient(log *logger.Logger, cfg GeminiConfig) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if !strings.HasPrefix(cfg.Model, "models/") {
		cfg.Model = "models/" + cfg.Model
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultGeminiTimeout
	}
	return &GeminiClient{
		log:       log.With("service", "GeminiEmbedder"),
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		http:      &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *GeminiClient) Dimension() int { return c.dimension }

// Model returns the fully qualified model name.
func (c *GeminiClient) Model() string { return c.model }

// Embed implements Embedder. Failures are logged and yield a degraded zero vector.
func (c *GeminiClient) Embed(ctx context.Context, text string) Result {
	values, err := c.embed(ctx, text)
	if err != nil {
		c.log.Warn("embedding request failed, using zero vector", "error", err, "text_len", len(text))
		metrics.EmbeddingRequests.WithLabelValues(metrics.OutcomeDegraded).Inc()
		return degraded(c.dimension)
	}
	metrics.EmbeddingRequests.WithLabelValues(metrics.OutcomeOK).Inc()
	return Result{Vector: values}
}

func (c *GeminiClient) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(geminiRequest{
		Model:   c.model,
		Content: geminiContent{Parts: []geminiPart{{Text: text}}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/%s:embedContent?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error carries the full URL, including the key
		return nil, fmt.Errorf("gemini request: %w", redactURLError(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gemini http status=%d body=%q", resp.StatusCode, truncate(raw))
	}

	var out geminiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Embedding == nil || len(out.Embedding.Values) == 0 {
		return nil, fmt.Errorf("response has no embedding values")
	}
	if len(out.Embedding.Values) != c.dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: expected=%d got=%d", c.dimension, len(out.Embedding.Values))
	}
	return out.Embedding.Values, nil
}

func redactURLError(err error) error {
	if ue, ok := err.(*url.Error); ok {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}

func truncate(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}
