package pinecone

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"coursequiz/models"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/types/known/structpb"
)

const fetchBatchSize = 100

// Service stores question embeddings in a Pinecone index, keyed by question id.
type Service struct {
	client    *pinecone.Client
	indexName string
	namespace string

	mu   sync.Mutex
	conn *pinecone.IndexConnection
}

func NewService(apiKey, indexName, namespace string) (*Service, error) {
	log.Infof("Initializing Pinecone service for index %s", indexName)

	pc, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pinecone client: %w", err)
	}

	return &Service{
		client:    pc,
		indexName: indexName,
		namespace: namespace,
	}, nil
}

// EnsureIndex creates the serverless index when it does not exist and waits
// for it to become ready.
func (s *Service) EnsureIndex(ctx context.Context, dimension int32) error {
	indexes, err := s.client.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexes: %w", err)
	}

	for _, idx := range indexes {
		if idx.Name == s.indexName {
			log.Infof("Index %s already exists", s.indexName)
			return nil
		}
	}

	log.Infof("Creating Pinecone index %s with dimension %d", s.indexName, dimension)
	deletionProtection := pinecone.DeletionProtectionDisabled
	metric := pinecone.Cosine

	_, err = s.client.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:               s.indexName,
		Dimension:          &dimension,
		Metric:             &metric,
		Cloud:              pinecone.Aws,
		Region:             "us-east-1",
		DeletionProtection: &deletionProtection,
		Tags:               &pinecone.IndexTags{"project": "coursequiz", "content": "question-bank"},
	})
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	for {
		idx, err := s.client.DescribeIndex(ctx, s.indexName)
		if err != nil {
			return fmt.Errorf("failed to describe index: %w", err)
		}
		if idx.Status != nil && idx.Status.Ready {
			log.Infof("Index %s is ready", s.indexName)
			return nil
		}

		log.Infof("Waiting for index %s to be ready...", s.indexName)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Second):
		}
	}
}

func (s *Service) indexConnection(ctx context.Context) (*pinecone.IndexConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return s.conn, nil
	}

	idxDesc, err := s.client.DescribeIndex(ctx, s.indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index: %w", err)
	}

	conn, err := s.client.Index(pinecone.NewIndexConnParams{
		Host:      idxDesc.Host,
		Namespace: s.namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create index connection: %w", err)
	}

	s.conn = conn
	return conn, nil
}

// FetchVectors returns the stored vectors for ids. Missing ids are absent
// from the result.
func (s *Service) FetchVectors(ctx context.Context, ids []string) (map[string][]float32, error) {
	found := make(map[string][]float32, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	conn, err := s.indexConnection(ctx)
	if err != nil {
		return nil, err
	}

	for _, batch := range lo.Chunk(ids, fetchBatchSize) {
		resp, err := conn.FetchVectors(ctx, batch)
		if err != nil {
			if strings.Contains(err.Error(), "Namespace not found") {
				return found, nil
			}
			return nil, fmt.Errorf("failed to fetch vectors: %w", err)
		}

		for id, vector := range resp.Vectors {
			if vector != nil && vector.Values != nil {
				found[id] = *vector.Values
			}
		}
	}

	log.Debugf("Fetched %d of %d question vectors from Pinecone", len(found), len(ids))
	return found, nil
}

func (s *Service) UpsertVector(ctx context.Context, question *models.Question, vector []float32) error {
	record, err := NewQuestionVector(question, vector)
	if err != nil {
		return err
	}
	return s.UpsertVectors(ctx, []*pinecone.Vector{record})
}

// UpsertVectors writes in batches of ten.
func (s *Service) UpsertVectors(ctx context.Context, vectors []*pinecone.Vector) error {
	conn, err := s.indexConnection(ctx)
	if err != nil {
		return err
	}

	for i, batch := range lo.Chunk(vectors, 10) {
		count, err := conn.UpsertVectors(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to upsert vector batch: %w", err)
		}
		log.Debugf("Upserted %d vectors (batch %d)", count, i+1)
	}
	return nil
}

// NewQuestionVector builds the Pinecone record for a question.
func NewQuestionVector(question *models.Question, vector []float32) (*pinecone.Vector, error) {
	metadata, err := structpb.NewStruct(map[string]any{
		"course_id":       question.CourseID,
		"type":            string(question.Type),
		"difficulty":      string(question.Difficulty),
		"is_ai_generated": question.IsAIGenerated,
		"indexed_at":      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata struct for question %s: %w", question.ID, err)
	}

	values := append([]float32(nil), vector...)
	return &pinecone.Vector{
		Id:       question.ID,
		Values:   &values,
		Metadata: metadata,
	}, nil
}
