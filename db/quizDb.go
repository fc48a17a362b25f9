package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coursequiz/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type PostgresSessionRepository struct {
	q querier
}

func (r *PostgresSessionRepository) CreateSession(ctx context.Context, session *models.QuizSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	configJSON, err := json.Marshal(session.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	query := `
		INSERT INTO coursequiz.quiz_sessions (id, student_id, course_id, config, question_ids, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	row := r.q.QueryRowContext(ctx, query, session.ID, session.StudentID, session.CourseID, configJSON,
		pq.Array(session.QuestionIDs.IDs()), session.DurationMinutes, session.Status)
	if err := row.Scan(&session.CreatedAt); err != nil {
		return fmt.Errorf("failed to create quiz session: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepository) GetSessionByID(ctx context.Context, id string) (*models.QuizSession, error) {
	query := `
		SELECT id, student_id, course_id, config, question_ids, duration_minutes, status,
			started_at, completed_at, score, created_at
		FROM coursequiz.quiz_sessions
		WHERE id = $1`

	session := &models.QuizSession{}
	var (
		configJSON  []byte
		questionIDs []string
		startedAt   sql.NullTime
		completedAt sql.NullTime
		score       sql.NullFloat64
	)

	row := r.q.QueryRowContext(ctx, query, id)
	err := row.Scan(&session.ID, &session.StudentID, &session.CourseID, &configJSON, pq.Array(&questionIDs),
		&session.DurationMinutes, &session.Status, &startedAt, &completedAt, &score, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, fmt.Errorf("quiz session with id %s %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get quiz session: %w", err)
	}

	if err := json.Unmarshal(configJSON, &session.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	session.QuestionIDs = models.NewQuestionSet(questionIDs)
	session.StartedAt = nullTime(startedAt)
	session.CompletedAt = nullTime(completedAt)
	if score.Valid {
		session.Score = &score.Float64
	}
	return session, nil
}

func (r *PostgresSessionRepository) StartSession(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE coursequiz.quiz_sessions
		SET status = $2, started_at = $3
		WHERE id = $1 AND status = $4`

	return r.transition(ctx, id, query, id, models.SessionInProgress, at, models.SessionPending)
}

func (r *PostgresSessionRepository) CompleteSession(ctx context.Context, id string, score float64, at time.Time) error {
	query := `
		UPDATE coursequiz.quiz_sessions
		SET status = $2, score = $3, completed_at = $4, started_at = COALESCE(started_at, $4)
		WHERE id = $1 AND status <> $2`

	return r.transition(ctx, id, query, id, models.SessionCompleted, score, at)
}

// transition runs a conditional status update. No affected rows means the
// session is missing or not in the required state.
func (r *PostgresSessionRepository) transition(ctx context.Context, id, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		if isInvalidID(err) {
			return fmt.Errorf("quiz session with id %s %w", id, models.ErrNotFound)
		}
		return fmt.Errorf("failed to update quiz session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var exists bool
		if err := r.q.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM coursequiz.quiz_sessions WHERE id = $1)", id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check quiz session: %w", err)
		}
		if !exists {
			return fmt.Errorf("quiz session with id %s %w", id, models.ErrNotFound)
		}
		return fmt.Errorf("quiz session %s: %w", id, models.ErrInvalidState)
	}
	return nil
}

func (r *PostgresSessionRepository) CreateResponse(ctx context.Context, response *models.QuizResponse) error {
	if response.ID == "" {
		response.ID = uuid.NewString()
	}

	var answer any
	if len(response.StudentAnswer) > 0 {
		answer = []byte(response.StudentAnswer)
	}

	query := `
		INSERT INTO coursequiz.quiz_responses (id, session_id, question_id, student_answer, is_correct, points_earned, feedback)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	row := r.q.QueryRowContext(ctx, query, response.ID, response.SessionID, response.QuestionID, answer,
		response.IsCorrect, response.PointsEarned, response.Feedback)
	if err := row.Scan(&response.CreatedAt); err != nil {
		return fmt.Errorf("failed to create quiz response: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepository) ListResponses(ctx context.Context, sessionID string) ([]*models.QuizResponse, error) {
	query := `
		SELECT id, session_id, question_id, student_answer, is_correct, points_earned, feedback, created_at
		FROM coursequiz.quiz_responses
		WHERE session_id = $1
		ORDER BY created_at, id`

	rows, err := r.q.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quiz responses: %w", err)
	}
	defer rows.Close()

	responses := make([]*models.QuizResponse, 0)
	for rows.Next() {
		response := &models.QuizResponse{}
		var answer []byte
		if err := rows.Scan(&response.ID, &response.SessionID, &response.QuestionID, &answer,
			&response.IsCorrect, &response.PointsEarned, &response.Feedback, &response.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quiz response: %w", err)
		}
		if len(answer) > 0 {
			response.StudentAnswer = json.RawMessage(answer)
		}
		responses = append(responses, response)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over quiz responses: %w", err)
	}
	return responses, nil
}

func (r *PostgresSessionRepository) ListHistory(ctx context.Context, studentID string) ([]*models.HistoryEntry, error) {
	query := `
		SELECT s.id, s.course_id, COALESCE(c.name, ''), s.status, s.score,
			COALESCE(array_length(s.question_ids, 1), 0), s.duration_minutes,
			s.created_at, s.started_at, s.completed_at
		FROM coursequiz.quiz_sessions s
		LEFT JOIN coursequiz.courses c ON c.id = s.course_id
		WHERE s.student_id = $1
		ORDER BY s.created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quiz history: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.HistoryEntry, 0)
	for rows.Next() {
		entry := &models.HistoryEntry{}
		var (
			score       sql.NullFloat64
			startedAt   sql.NullTime
			completedAt sql.NullTime
		)
		if err := rows.Scan(&entry.SessionID, &entry.CourseID, &entry.CourseName, &entry.Status, &score,
			&entry.QuestionCount, &entry.DurationMinutes, &entry.CreatedAt, &startedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quiz history: %w", err)
		}
		if score.Valid {
			entry.Score = &score.Float64
		}
		entry.StartedAt = nullTime(startedAt)
		entry.CompletedAt = nullTime(completedAt)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over quiz history: %w", err)
	}
	return entries, nil
}

func (r *PostgresSessionRepository) CountSessions(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM coursequiz.quiz_sessions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count quiz sessions: %w", err)
	}
	return count, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	value := t.Time
	return &value
}
