package services

import (
	"context"
	"fmt"

	"coursequiz/db"
	"coursequiz/models"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultLogLimit = 50
	MaxLogLimit     = 100
)

// LogPage is one page of generation logs, newest first.
type LogPage struct {
	Logs   []*models.AIGenerationLog `json:"logs"`
	Total  int                       `json:"total"`
	Limit  int                       `json:"limit"`
	Offset int                       `json:"offset"`
}

type AdminService struct {
	store db.Store
}

func NewAdminService(store db.Store) *AdminService {
	return &AdminService{store: store}
}

func (s *AdminService) Stats(ctx context.Context) (*models.Stats, error) {
	aiGenerated := true

	total, err := s.store.Questions().CountQuestions(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}
	ai, err := s.store.Questions().CountQuestions(ctx, &aiGenerated)
	if err != nil {
		return nil, fmt.Errorf("failed to count generated questions: %w", err)
	}
	courses, err := s.store.Courses().CountCourses(ctx)
	if err != nil {
		return nil, err
	}
	quizzes, err := s.store.Sessions().CountSessions(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.store.Users().CountUsers(ctx)
	if err != nil {
		return nil, err
	}

	return &models.Stats{
		TotalQuestions:       total,
		AIGeneratedQuestions: ai,
		ManualQuestions:      total - ai,
		TotalCourses:         courses,
		TotalQuizzes:         quizzes,
		TotalUsers:           users,
	}, nil
}

// ListGenerationLogs pages through the generation audit log. A zero limit
// means the default page size.
func (s *AdminService) ListGenerationLogs(ctx context.Context, limit, offset int) (*LogPage, error) {
	if limit == 0 {
		limit = DefaultLogLimit
	}
	if limit < 0 || limit > MaxLogLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", models.ErrValidation, MaxLogLimit)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", models.ErrValidation)
	}

	logs, err := s.store.GenerationLogs().ListLogs(ctx, limit, offset)
	if err != nil {
		log.Errorf("Failed to list generation logs: %v", err)
		return nil, fmt.Errorf("failed to get generation logs: %w", err)
	}
	total, err := s.store.GenerationLogs().CountLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count generation logs: %w", err)
	}

	return &LogPage{Logs: logs, Total: total, Limit: limit, Offset: offset}, nil
}
