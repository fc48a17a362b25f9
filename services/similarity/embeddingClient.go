package similarity

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type embeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// RestEmbeddingClient calls an OpenAI-style /embeddings endpoint. It satisfies
// langchaingo's embeddings.EmbedderClient so it can sit behind
// embeddings.NewEmbedder.
type RestEmbeddingClient struct {
	client *resty.Client
	url    string
	model  string
}

func NewRestEmbeddingClient(url, apiKey, model string, timeout time.Duration) *RestEmbeddingClient {
	client := resty.New().
		SetTimeout(timeout).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")

	return &RestEmbeddingClient{client: client, url: url, model: model}
}

// CreateEmbedding embeds each text with its own request, in order.
func (c *RestEmbeddingClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	for _, text := range texts {
		var result embeddingResponse
		resp, err := c.client.R().
			SetContext(ctx).
			SetBody(embeddingRequest{Input: text, Model: c.model}).
			SetResult(&result).
			Post(c.url)
		if err != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("embedding API error: %d - %s", resp.StatusCode(), resp.String())
		}
		if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
			return nil, fmt.Errorf("embedding API returned no vector")
		}

		vectors = append(vectors, result.Data[0].Embedding)
	}

	return vectors, nil
}
