package quiz

import (
	"context"
	"fmt"
	"time"

	"coursequiz/db"
	"coursequiz/models"
	"coursequiz/services/dedup"
	"coursequiz/services/generator"
	"coursequiz/services/grading"
	"coursequiz/services/similarity"
)

// QuestionGenerator produces raw question drafts for a course.
type QuestionGenerator interface {
	Generate(ctx context.Context, req generator.GenerateRequest) (*generator.GenerationResult, error)
}

// Service runs the quiz lifecycle: generation, start, retrieval, submission
// and history.
type Service struct {
	store     db.Store
	generator QuestionGenerator
	dedup     *dedup.Deduplicator
	grader    *grading.Grader
	vectors   similarity.VectorStore
	now       func() time.Time
}

// NewService wires the orchestrator. vectors may be nil.
func NewService(store db.Store, gen QuestionGenerator, deduplicator *dedup.Deduplicator, grader *grading.Grader, vectors similarity.VectorStore) *Service {
	return &Service{
		store:     store,
		generator: gen,
		dedup:     deduplicator,
		grader:    grader,
		vectors:   vectors,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ownedSession loads a session and hides it from everyone but its student.
func (s *Service) ownedSession(ctx context.Context, sessions db.SessionRepository, userID, sessionID string) (*models.QuizSession, error) {
	session, err := sessions.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.StudentID != userID {
		return nil, fmt.Errorf("quiz session with id %s %w", sessionID, models.ErrNotFound)
	}
	return session, nil
}

func newSessionView(session *models.QuizSession, questions []*models.Question) *models.QuizSessionView {
	views := make([]models.QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, models.NewQuestionView(q))
	}
	return &models.QuizSessionView{
		SessionID:       session.ID,
		Status:          session.Status,
		DurationMinutes: session.DurationMinutes,
		Questions:       views,
	}
}
