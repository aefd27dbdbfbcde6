// Package embedding turns text into fixed-length vectors for similarity search.
package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Provider generates embeddings for batches of text. Implementations must
// return one vector per input text, all with the same dimensionality, and
// must be safe for concurrent use.
type Provider interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the fixed vector length this provider produces.
	Dimension() int
	// ModelID is the provider-qualified model identifier, e.g.
	// "openai/text-embedding-3-small".
	ModelID() string
}

// New constructs a Provider from a provider-qualified model id. The prefix
// before the first "/" selects the implementation; the remainder names the
// model. An empty remainder selects the implementation's default model.
func New(modelID string) (Provider, error) {
	name, model, _ := strings.Cut(modelID, "/")
	switch name {
	case "openai":
		return NewOpenAIProvider(model)
	case "ollama":
		return NewOllamaProvider(OllamaConfig{Model: model})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (want openai/... or ollama/...)", modelID)
	}
}

// Lazy defers provider construction until first use and guarantees it runs
// at most once, even under concurrent first callers. A construction failure
// is sticky: every subsequent call observes the same error, because serving
// queries without a working embedding path would desynchronize ingestion and
// retrieval.
type Lazy struct {
	construct func() (Provider, error)

	once     sync.Once
	provider Provider
	err      error
}

// NewLazy wraps the registry lookup for modelID in a once-only initializer.
func NewLazy(modelID string) *Lazy {
	return &Lazy{construct: func() (Provider, error) { return New(modelID) }}
}

// NewLazyFrom wraps an arbitrary constructor. Used by tests to inject fakes.
func NewLazyFrom(construct func() (Provider, error)) *Lazy {
	return &Lazy{construct: construct}
}

// Resolve initializes the underlying provider on first call and returns it.
// Concurrent callers block until the single initialization completes.
func (l *Lazy) Resolve() (Provider, error) {
	l.once.Do(func() {
		l.provider, l.err = l.construct()
	})
	return l.provider, l.err
}

// Embed resolves the provider and delegates.
func (l *Lazy) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p, err := l.Resolve()
	if err != nil {
		return nil, err
	}
	return p.Embed(ctx, texts)
}
