package db

import (
	"context"
	"fmt"

	"coursequiz/models"

	"github.com/google/uuid"
)

type PostgresGenerationLogRepository struct {
	q querier
}

func (r *PostgresGenerationLogRepository) CreateLog(ctx context.Context, entry *models.AIGenerationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	query := `
		INSERT INTO coursequiz.ai_generation_logs (id, user_id, course_id, prompt, raw_response,
			questions_generated, questions_stored, duplicates_found)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	row := r.q.QueryRowContext(ctx, query, entry.ID, entry.UserID, entry.CourseID, entry.Prompt, entry.RawResponse,
		entry.QuestionsGenerated, entry.QuestionsStored, entry.DuplicatesFound)
	if err := row.Scan(&entry.CreatedAt); err != nil {
		return fmt.Errorf("failed to create generation log: %w", err)
	}
	return nil
}

func (r *PostgresGenerationLogRepository) ListLogs(ctx context.Context, limit, offset int) ([]*models.AIGenerationLog, error) {
	query := `
		SELECT id, user_id, course_id, prompt, raw_response, questions_generated, questions_stored,
			duplicates_found, created_at
		FROM coursequiz.ai_generation_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.q.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query generation logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.AIGenerationLog, 0)
	for rows.Next() {
		entry := &models.AIGenerationLog{}
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.CourseID, &entry.Prompt, &entry.RawResponse,
			&entry.QuestionsGenerated, &entry.QuestionsStored, &entry.DuplicatesFound, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan generation log: %w", err)
		}
		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over generation logs: %w", err)
	}
	return logs, nil
}

func (r *PostgresGenerationLogRepository) CountLogs(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM coursequiz.ai_generation_logs").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count generation logs: %w", err)
	}
	return count, nil
}
