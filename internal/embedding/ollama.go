package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Ollama defaults. nomic-embed-text is the usual local embedding model.
const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "nomic-embed-text"
	DefaultOllamaTimeout = 30 * time.Second

	// nomic-embed-text vector size
	defaultOllamaDimension = 768
)

// OllamaConfig configures the Ollama provider. Zero values select defaults.
type OllamaConfig struct {
	BaseURL   string
	Model     string
	Timeout   time.Duration
	Dimension int
}

// OllamaProvider generates embeddings through a local Ollama server. The API
// embeds one prompt per request, so batches are issued sequentially.
type OllamaProvider struct {
	client    *http.Client
	baseURL   string
	model     string
	dimension int
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewOllamaProvider creates an Ollama-backed provider. The base URL falls
// back to OLLAMA_BASE_URL, then the local default.
func NewOllamaProvider(cfg OllamaConfig) (*OllamaProvider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultOllamaTimeout
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = defaultOllamaDimension
	}

	return &OllamaProvider{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		dimension: cfg.Dimension,
	}, nil
}

func (p *OllamaProvider) Dimension() int  { return p.dimension }
func (p *OllamaProvider) ModelID() string { return "ollama/" + p.model }

// Embed generates one embedding per text.
func (p *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(texts))
	for i, text := range texts {
		vec, err := p.embedOne(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		embeddings = append(embeddings, vec)
	}
	return embeddings, nil
}

func (p *OllamaProvider) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama returned %d: %s", resp.StatusCode, msg)
	}

	var parsed ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(parsed.Embedding) != p.dimension {
		return nil, fmt.Errorf("model %s returned %d dimensions, expected %d",
			p.model, len(parsed.Embedding), p.dimension)
	}

	return toFloat32(parsed.Embedding), nil
}
