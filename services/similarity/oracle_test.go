package similarity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, expected: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, expected: 0},
		{name: "opposite", a: []float32{1, 1}, b: []float32{-1, -1}, expected: -1},
		{name: "zero vector", a: []float32{0, 0, 0}, b: []float32{1, 2, 3}, expected: 0},
		{name: "both zero", a: []float32{0, 0}, b: []float32{0, 0}, expected: 0},
		{name: "length mismatch", a: []float32{1, 2}, b: []float32{1, 2, 3}, expected: 0},
		{name: "empty", a: nil, b: nil, expected: 0},
		{name: "exactly ninety percent", a: []float32{1, 0, 0, 0}, b: []float32{9, 3, 3, 1}, expected: 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineSimilarityBoundaryIsExact(t *testing.T) {
	assert.GreaterOrEqual(t, CosineSimilarity([]float32{1, 0, 0, 0}, []float32{9, 3, 3, 1}), 0.90)
	assert.False(t, math.IsNaN(CosineSimilarity([]float32{0}, []float32{0})))
}

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := f.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[text], nil
}

func TestOracleEmbed(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled oracle reports absent", func(t *testing.T) {
		oracle := NewOracle(nil, time.Second)
		vector, ok := oracle.Embed(ctx, "anything")
		assert.False(t, ok)
		assert.Nil(t, vector)
		assert.False(t, oracle.Enabled())
	})

	t.Run("upstream error degrades to absent", func(t *testing.T) {
		oracle := NewOracle(&fakeEmbedder{err: errors.New("connection refused")}, time.Second)
		_, ok := oracle.Embed(ctx, "anything")
		assert.False(t, ok)
	})

	t.Run("empty vector is absent", func(t *testing.T) {
		oracle := NewOracle(&fakeEmbedder{vectors: map[string][]float32{}}, time.Second)
		_, ok := oracle.Embed(ctx, "unknown")
		assert.False(t, ok)
	})

	t.Run("returns vector", func(t *testing.T) {
		oracle := NewOracle(&fakeEmbedder{vectors: map[string][]float32{"stack": {1, 2}}}, time.Second)
		vector, ok := oracle.Embed(ctx, "stack")
		require.True(t, ok)
		assert.Equal(t, []float32{1, 2}, vector)
	})
}

func TestRestOracleCallsEmbeddingEndpoint(t *testing.T) {
	var received embeddingRequest
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data": [{"embedding": [0.5, 0.25, 0.125]}]}`)
	}))
	defer server.Close()

	oracle, err := NewRestOracle(server.URL, "secret", "text-embedding-ada-002", 5*time.Second)
	require.NoError(t, err)
	require.True(t, oracle.Enabled())

	vector, ok := oracle.Embed(context.Background(), "What is a heap?")
	require.True(t, ok)
	assert.Equal(t, []float32{0.5, 0.25, 0.125}, vector)
	assert.Equal(t, "What is a heap?", received.Input)
	assert.Equal(t, "text-embedding-ada-002", received.Model)
	assert.Equal(t, "Bearer secret", authHeader)
}

func TestRestOracleTreatsHTTPErrorsAsAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	oracle, err := NewRestOracle(server.URL, "secret", "model", time.Second)
	require.NoError(t, err)

	_, ok := oracle.Embed(context.Background(), "text")
	assert.False(t, ok)
}

func TestNewRestOracleWithoutConfigIsDisabled(t *testing.T) {
	oracle, err := NewRestOracle("", "", "model", time.Second)
	require.NoError(t, err)
	assert.False(t, oracle.Enabled())
}
