package similarity

import (
	"context"

	"coursequiz/models"
)

// VectorStore persists question embeddings so they are computed once.
type VectorStore interface {
	FetchVectors(ctx context.Context, ids []string) (map[string][]float32, error)
	UpsertVector(ctx context.Context, question *models.Question, vector []float32) error
}
