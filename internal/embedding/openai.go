package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// DefaultOpenAIModel is used when the model id names only the provider.
	DefaultOpenAIModel = "text-embedding-3-small"

	// openAIBatchSize balances requests-per-minute vs tokens-per-minute rate
	// limits. The API accepts up to 2048 texts, smaller batches reduce TPM
	// pressure.
	openAIBatchSize = 500
)

// openAIDimensions maps supported models to their fixed vector sizes.
var openAIDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIProvider generates embeddings via the OpenAI embeddings API, with
// request batching and exponential backoff on rate limit errors.
type OpenAIProvider struct {
	client    openai.Client
	model     string
	dimension int
	batchSize int
}

// NewOpenAIProvider creates a provider for the given model (empty selects
// DefaultOpenAIModel). It requires OPENAI_API_KEY in the environment and
// rejects models whose dimensionality it does not know, since the store
// validates vector sizes against the provider's declared dimension.
func NewOpenAIProvider(model string) (*OpenAIProvider, error) {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}
	dim, ok := openAIDimensions[model]
	if !ok {
		return nil, fmt.Errorf("unsupported openai embedding model %q", model)
	}

	// openai-go reads OPENAI_API_KEY from the environment
	return &OpenAIProvider{
		client:    openai.NewClient(),
		model:     model,
		dimension: dim,
		batchSize: openAIBatchSize,
	}, nil
}

func (p *OpenAIProvider) Dimension() int  { return p.dimension }
func (p *OpenAIProvider) ModelID() string { return "openai/" + p.model }

// Embed generates embeddings for the given texts, batching requests and
// retrying rate-limited batches with exponential backoff.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var all [][]float32

	for i := 0; i < len(texts); i += p.batchSize {
		end := min(i+p.batchSize, len(texts))
		batch, err := p.embedBatchWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		all = append(all, batch...)
	}

	return all, nil
}

// embedBatchWithRetry embeds a single batch. Rate limit errors (HTTP 429)
// are retried with exponential backoff; anything else fails immediately.
func (p *OpenAIProvider) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32

	operation := func() error {
		resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: openai.EmbeddingModel(p.model),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err // retry with backoff
			}
			return backoff.Permanent(err)
		}

		embeddings = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			embeddings[i] = toFloat32(data.Embedding)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	return embeddings, err
}

// isRateLimitError checks for an HTTP 429 from the API.
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 converts the API's float64 vectors to the float32 the store keeps.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
