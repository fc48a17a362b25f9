package similarity

import (
	"context"
	"fmt"
	"math"
	"time"

	"coursequiz/models"

	log "github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/embeddings"
)

// Oracle turns text into embedding vectors. A nil embedder means the
// feature is disabled, and every lookup reports "absent".
type Oracle struct {
	embedder embeddings.Embedder
	timeout  time.Duration
}

func NewOracle(embedder embeddings.Embedder, timeout time.Duration) *Oracle {
	return &Oracle{embedder: embedder, timeout: timeout}
}

// NewRestOracle wires the REST embedding endpoint behind langchaingo's embedder.
func NewRestOracle(url, apiKey, model string, timeout time.Duration) (*Oracle, error) {
	if url == "" || apiKey == "" {
		log.Warn("Embedding service not configured, semantic deduplication disabled")
		return NewOracle(nil, timeout), nil
	}

	embedder, err := embeddings.NewEmbedder(NewRestEmbeddingClient(url, apiKey, model, timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return NewOracle(embedder, timeout), nil
}

func (o *Oracle) Enabled() bool {
	return o != nil && o.embedder != nil
}

// Embed returns the vector for text, or false when the embedding service is
// disabled, unreachable, or returned nothing usable.
func (o *Oracle) Embed(ctx context.Context, text string) ([]float32, bool) {
	if !o.Enabled() {
		return nil, false
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	vector, err := o.embedder.EmbedQuery(ctx, text)
	if err != nil {
		log.Warnf("%v: %v", models.ErrDegradedDependency, err)
		return nil, false
	}
	if len(vector) == 0 {
		log.Warnf("%v: embedding service returned an empty vector", models.ErrDegradedDependency)
		return nil, false
	}
	return vector, true
}

// CosineSimilarity returns 0 when either vector is empty, all zeros, or the
// lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
