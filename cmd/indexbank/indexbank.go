package main

import (
	"context"
	"time"

	"coursequiz/config"
	"coursequiz/db"
	"coursequiz/models"
	"coursequiz/services/pinecone"
	"coursequiz/services/similarity"

	pc "github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// upsertBatchSize bounds how many records are held before each write.
const upsertBatchSize = 50

func main() {
	log.Info("Starting question bank indexing process")

	cfg := config.Load()
	config.ConfigureLogging(cfg)

	if cfg.DatabaseURL == "" {
		log.Fatal("DB_URL environment variable is required")
	}
	if !cfg.PineconeEnabled() {
		log.Fatal("PINECONE_API_KEY environment variable is required")
	}
	if !cfg.EmbeddingsEnabled() {
		log.Fatal("EMBEDDING_API_URL and EMBEDDING_API_KEY environment variables are required")
	}

	store, err := db.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	oracle, err := similarity.NewRestOracle(cfg.EmbeddingAPIURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, cfg.EmbeddingTimeout)
	if err != nil {
		log.Fatalf("Failed to create embedding client: %v", err)
	}

	index, err := pinecone.NewService(cfg.PineconeAPIKey, cfg.PineconeIndexName, cfg.PineconeNamespace)
	if err != nil {
		log.Fatalf("Failed to create Pinecone client: %v", err)
	}

	ctx := context.Background()

	// the embedding model fixes the index dimension
	probe, ok := oracle.Embed(ctx, "question bank dimension probe")
	if !ok {
		log.Fatal("Failed to embed the dimension probe, check the embedding endpoint")
	}
	if err := index.EnsureIndex(ctx, int32(len(probe))); err != nil {
		log.Fatalf("Failed to ensure Pinecone index: %v", err)
	}

	courses, err := store.Courses().GetAllCourses(ctx)
	if err != nil {
		log.Fatalf("Failed to retrieve courses: %v", err)
	}
	log.Infof("Retrieved %d courses from database", len(courses))

	indexed, skipped, failed := 0, 0, 0

	for i, course := range courses {
		log.Infof("Processing course %d/%d (%s)", i+1, len(courses), course.Code)

		questions, err := store.Questions().ListQuestions(ctx, models.QuestionFilter{CourseID: course.ID})
		if err != nil {
			log.Errorf("Failed to list questions for course %s: %v", course.Code, err)
			continue
		}
		if len(questions) == 0 {
			continue
		}

		ids := lo.Map(questions, func(q *models.Question, _ int) string { return q.ID })
		existing, err := index.FetchVectors(ctx, ids)
		if err != nil {
			log.Errorf("Failed to fetch existing vectors for course %s: %v", course.Code, err)
			continue
		}

		var pending []*pc.Vector
		for _, q := range questions {
			if _, ok := existing[q.ID]; ok {
				skipped++
				continue
			}

			vector, ok := oracle.Embed(ctx, q.Text)
			if !ok {
				failed++
				continue
			}

			record, err := pinecone.NewQuestionVector(q, vector)
			if err != nil {
				log.Errorf("Failed to build vector for question %s: %v", q.ID, err)
				failed++
				continue
			}
			pending = append(pending, record)

			if len(pending) >= upsertBatchSize {
				indexed += flush(ctx, index, pending, &failed)
				pending = nil
			}
		}
		indexed += flush(ctx, index, pending, &failed)

		// be gentle with the embedding endpoint between courses
		time.Sleep(500 * time.Millisecond)
	}

	log.WithFields(log.Fields{
		"indexed": indexed,
		"skipped": skipped,
		"failed":  failed,
	}).Info("Question bank indexing complete")
}

func flush(ctx context.Context, index *pinecone.Service, records []*pc.Vector, failed *int) int {
	if len(records) == 0 {
		return 0
	}
	if err := index.UpsertVectors(ctx, records); err != nil {
		log.Errorf("Failed to upsert %d vectors: %v", len(records), err)
		*failed += len(records)
		return 0
	}
	return len(records)
}
