package db

import (
	"context"
	"time"

	"coursequiz/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CountUsers(ctx context.Context) (int, error)
}

type CourseRepository interface {
	CreateCourse(ctx context.Context, course *models.Course) error
	GetCourseByID(ctx context.Context, id string) (*models.Course, error)
	GetAllCourses(ctx context.Context) ([]*models.Course, error)
	UpdateCourse(ctx context.Context, course *models.Course) error
	DeleteCourse(ctx context.Context, id string) error
	CountCourses(ctx context.Context) (int, error)
}

type QuestionRepository interface {
	// CreateQuestion inserts the question and its options. When a question
	// with the same content hash already exists in the course nothing is
	// written, question.ID is set to the existing id and created is false.
	CreateQuestion(ctx context.Context, question *models.Question) (created bool, err error)
	GetQuestionByID(ctx context.Context, id string) (*models.Question, error)
	GetQuestionsByIDs(ctx context.Context, ids []string) (map[string]*models.Question, error)
	// ListQuestions returns matches in insertion order.
	ListQuestions(ctx context.Context, filter models.QuestionFilter) ([]*models.Question, error)
	UpdateQuestion(ctx context.Context, question *models.Question) error
	DeleteQuestion(ctx context.Context, id string) error
	CountQuestions(ctx context.Context, aiGenerated *bool) (int, error)
}

type SessionRepository interface {
	CreateSession(ctx context.Context, session *models.QuizSession) error
	GetSessionByID(ctx context.Context, id string) (*models.QuizSession, error)
	// StartSession moves a pending session to in_progress.
	StartSession(ctx context.Context, id string, at time.Time) error
	// CompleteSession moves a not yet completed session to completed.
	CompleteSession(ctx context.Context, id string, score float64, at time.Time) error
	CreateResponse(ctx context.Context, response *models.QuizResponse) error
	ListResponses(ctx context.Context, sessionID string) ([]*models.QuizResponse, error)
	ListHistory(ctx context.Context, studentID string) ([]*models.HistoryEntry, error)
	CountSessions(ctx context.Context) (int, error)
}

type GenerationLogRepository interface {
	CreateLog(ctx context.Context, entry *models.AIGenerationLog) error
	ListLogs(ctx context.Context, limit, offset int) ([]*models.AIGenerationLog, error)
	CountLogs(ctx context.Context) (int, error)
}

// Store groups the repositories. Repositories obtained from the Store passed
// to a WithTx callback share that transaction.
type Store interface {
	Users() UserRepository
	Courses() CourseRepository
	Questions() QuestionRepository
	Sessions() SessionRepository
	GenerationLogs() GenerationLogRepository
	WithTx(ctx context.Context, fn func(tx Store) error) error
	Close() error
}
