package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"coursequiz/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type PostgresQuestionRepository struct {
	q querier
}

const questionColumns = `id, course_id, type, difficulty, question_text, correct_answer,
		explanation, is_ai_generated, created_by_user_id, content_hash, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresQuestionRepository) CreateQuestion(ctx context.Context, question *models.Question) (bool, error) {
	if question.ID == "" {
		question.ID = uuid.NewString()
	}
	question.ContentHash = models.ContentHash(question.CourseID, question.Text)

	answerJSON, err := models.EncodeAnswerKey(question.CorrectAnswer)
	if err != nil {
		return false, fmt.Errorf("failed to marshal correct answer: %w", err)
	}

	query := `
		INSERT INTO coursequiz.questions (id, course_id, type, difficulty, question_text, correct_answer,
			explanation, is_ai_generated, created_by_user_id, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (course_id, content_hash) DO NOTHING
		RETURNING created_at, updated_at`

	row := r.q.QueryRowContext(ctx, query, question.ID, question.CourseID, question.Type, question.Difficulty,
		question.Text, answerJSON, question.Explanation, question.IsAIGenerated, question.CreatedBy, question.ContentHash)

	err = row.Scan(&question.CreatedAt, &question.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		existingID, lookupErr := r.findIDByHash(ctx, question.CourseID, question.ContentHash)
		if lookupErr != nil {
			return false, lookupErr
		}
		question.ID = existingID
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create question: %w", err)
	}

	if err := r.insertOptions(ctx, question); err != nil {
		return false, err
	}
	return true, nil
}

func (r *PostgresQuestionRepository) findIDByHash(ctx context.Context, courseID, hash string) (string, error) {
	query := "SELECT id FROM coursequiz.questions WHERE course_id = $1 AND content_hash = $2"

	var id string
	if err := r.q.QueryRowContext(ctx, query, courseID, hash).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to resolve existing question: %w", err)
	}
	return id, nil
}

func (r *PostgresQuestionRepository) insertOptions(ctx context.Context, question *models.Question) error {
	query := `
		INSERT INTO coursequiz.question_options (id, question_id, option_text, option_letter, is_correct, position)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for i := range question.Options {
		option := &question.Options[i]
		if option.ID == "" {
			option.ID = uuid.NewString()
		}
		option.QuestionID = question.ID
		option.Position = i

		if _, err := r.q.ExecContext(ctx, query, option.ID, option.QuestionID, option.Text, option.Letter, option.IsCorrect, option.Position); err != nil {
			return fmt.Errorf("failed to create option for question %s: %w", question.ID, err)
		}
	}
	return nil
}

func (r *PostgresQuestionRepository) GetQuestionByID(ctx context.Context, id string) (*models.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM coursequiz.questions WHERE id = $1`

	question, err := scanQuestion(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, fmt.Errorf("question with id %s %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	if err := r.attachOptions(ctx, []*models.Question{question}); err != nil {
		return nil, err
	}
	return question, nil
}

func (r *PostgresQuestionRepository) GetQuestionsByIDs(ctx context.Context, ids []string) (map[string]*models.Question, error) {
	result := make(map[string]*models.Question, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `SELECT ` + questionColumns + ` FROM coursequiz.questions WHERE id::text = ANY($1)`

	questions, err := r.queryQuestions(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}

	for _, q := range questions {
		result[q.ID] = q
	}
	return result, nil
}

func (r *PostgresQuestionRepository) ListQuestions(ctx context.Context, filter models.QuestionFilter) ([]*models.Question, error) {
	var (
		conditions []string
		args       []any
	)
	addCondition := func(format string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(format, len(args)))
	}

	if filter.CourseID != "" {
		addCondition("course_id = $%d", filter.CourseID)
	}
	if filter.Difficulty != "" {
		addCondition("difficulty = $%d", string(filter.Difficulty))
	}
	if filter.Type != "" {
		addCondition("type = $%d", string(filter.Type))
	}
	if filter.IsAIGenerated != nil {
		addCondition("is_ai_generated = $%d", *filter.IsAIGenerated)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(question_text) LIKE $%d OR LOWER(explanation) LIKE $%d)", len(args), len(args)))
	}

	query := `SELECT ` + questionColumns + ` FROM coursequiz.questions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY seq"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	questions, err := r.queryQuestions(ctx, query, args...)
	if err != nil && filter.CourseID != "" && isInvalidID(err) {
		// a malformed course id matches nothing
		return make([]*models.Question, 0), nil
	}
	return questions, err
}

func (r *PostgresQuestionRepository) queryQuestions(ctx context.Context, query string, args ...any) ([]*models.Question, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	questions := make([]*models.Question, 0)
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, question)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over questions: %w", err)
	}

	if err := r.attachOptions(ctx, questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *PostgresQuestionRepository) attachOptions(ctx context.Context, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	byID := make(map[string]*models.Question, len(questions))
	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
		ids = append(ids, q.ID)
	}

	query := `
		SELECT id, question_id, option_text, option_letter, is_correct, position
		FROM coursequiz.question_options
		WHERE question_id::text = ANY($1)
		ORDER BY question_id, position`

	rows, err := r.q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var option models.Option
		if err := rows.Scan(&option.ID, &option.QuestionID, &option.Text, &option.Letter, &option.IsCorrect, &option.Position); err != nil {
			return fmt.Errorf("failed to scan option: %w", err)
		}
		if q, ok := byID[option.QuestionID]; ok {
			q.Options = append(q.Options, option)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating over options: %w", err)
	}
	return nil
}

func (r *PostgresQuestionRepository) UpdateQuestion(ctx context.Context, question *models.Question) error {
	question.ContentHash = models.ContentHash(question.CourseID, question.Text)

	answerJSON, err := models.EncodeAnswerKey(question.CorrectAnswer)
	if err != nil {
		return fmt.Errorf("failed to marshal correct answer: %w", err)
	}

	query := `
		UPDATE coursequiz.questions
		SET difficulty = $2, question_text = $3, correct_answer = $4, explanation = $5,
			content_hash = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	row := r.q.QueryRowContext(ctx, query, question.ID, question.Difficulty, question.Text, answerJSON,
		question.Explanation, question.ContentHash)
	if err := row.Scan(&question.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return fmt.Errorf("question with id %s %w", question.ID, models.ErrNotFound)
		}
		return fmt.Errorf("failed to update question: %w", mapWriteError(err, "a question with this text"))
	}

	if _, err := r.q.ExecContext(ctx, "DELETE FROM coursequiz.question_options WHERE question_id = $1", question.ID); err != nil {
		return fmt.Errorf("failed to delete options: %w", err)
	}
	return r.insertOptions(ctx, question)
}

func (r *PostgresQuestionRepository) DeleteQuestion(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, "DELETE FROM coursequiz.questions WHERE id = $1", id)
	if err != nil {
		if isInvalidID(err) {
			return fmt.Errorf("question with id %s %w", id, models.ErrNotFound)
		}
		return fmt.Errorf("failed to delete question: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("question with id %s %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *PostgresQuestionRepository) CountQuestions(ctx context.Context, aiGenerated *bool) (int, error) {
	query := "SELECT COUNT(*) FROM coursequiz.questions"
	var args []any
	if aiGenerated != nil {
		query += " WHERE is_ai_generated = $1"
		args = append(args, *aiGenerated)
	}

	var count int
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

func scanQuestion(row rowScanner) (*models.Question, error) {
	question := &models.Question{}
	var (
		answerJSON []byte
		createdBy  sql.NullString
	)

	err := row.Scan(&question.ID, &question.CourseID, &question.Type, &question.Difficulty, &question.Text,
		&answerJSON, &question.Explanation, &question.IsAIGenerated, &createdBy, &question.ContentHash,
		&question.CreatedAt, &question.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if createdBy.Valid {
		question.CreatedBy = &createdBy.String
	}

	key, err := models.DecodeAnswerKey(question.Type, answerJSON)
	if err != nil {
		return nil, err
	}
	question.CorrectAnswer = key
	return question, nil
}
