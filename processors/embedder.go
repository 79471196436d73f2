package processors

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"lectureNotes/config"
	"lectureNotes/core"
)

// OpenAIEmbedder calls the embeddings API once per text, producing the
// window and query vectors.
type OpenAIEmbedder struct {
	cli   *openai.Client
	model string
}

func NewOpenAIEmbedder(cfg *config.Config) *OpenAIEmbedder {
	return &OpenAIEmbedder{cli: NewOpenAIClient(cfg), model: cfg.EmbeddingModel}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.cli.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, &core.ExternalServiceError{Service: "embedder", Err: err}
	}
	if len(resp.Data) == 0 {
		return nil, &core.ExternalServiceError{Service: "embedder", Err: fmt.Errorf("no embeddings returned")}
	}
	return resp.Data[0].Embedding, nil
}

// MockEmbedder hashes tokens into a fixed-length bag-of-words vector and
// L2-normalizes it. Deterministic, offline, good enough for topic drift on
// synthetic transcripts and for tests.
type MockEmbedder struct {
	Dim int
}

func (e MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	dim := e.Dim
	if dim <= 0 {
		dim = 256
	}
	vec := make([]float32, dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(dim)] += 1
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum > 0 {
		norm := float32(math.Sqrt(sum))
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// EmbedTexts runs the embedder over each window text in order.
func EmbedTexts(ctx context.Context, embedder core.Embedder, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed window %d: %w", i, err)
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// PickEmbedder selects the embedding provider: EMBEDDER=mock forces the
// offline embedder, otherwise the API embedder is used when configured.
func PickEmbedder(cfg *config.Config) core.Embedder {
	kind := strings.ToLower(strings.TrimSpace(os.Getenv("EMBEDDER")))
	if kind == "mock" {
		return MockEmbedder{}
	}
	if !cfg.HasValidAPI() {
		log.Printf("Warning: API configuration not found, using mock embedder")
		return MockEmbedder{}
	}
	return NewOpenAIEmbedder(cfg)
}

// NewOpenAIClient builds a client against the configured base URL, which may
// point at any OpenAI-compatible endpoint.
func NewOpenAIClient(cfg *config.Config) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}
