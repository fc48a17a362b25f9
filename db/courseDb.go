package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coursequiz/models"
)

type PostgresCourseRepository struct {
	q querier
}

func (r *PostgresCourseRepository) CreateCourse(ctx context.Context, course *models.Course) error {
	query := `
		INSERT INTO coursequiz.courses (id, code, name, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	row := r.q.QueryRowContext(ctx, query, course.ID, course.Code, course.Name, course.Description)
	if err := row.Scan(&course.CreatedAt, &course.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create course: %w", mapWriteError(err, "course code "+course.Code))
	}
	return nil
}

func (r *PostgresCourseRepository) GetCourseByID(ctx context.Context, id string) (*models.Course, error) {
	query := `
		SELECT id, code, name, description, created_at, updated_at
		FROM coursequiz.courses
		WHERE id = $1`

	course := &models.Course{}
	row := r.q.QueryRowContext(ctx, query, id)
	err := row.Scan(&course.ID, &course.Code, &course.Name, &course.Description, &course.CreatedAt, &course.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, fmt.Errorf("course with id %s %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return course, nil
}

func (r *PostgresCourseRepository) GetAllCourses(ctx context.Context) ([]*models.Course, error) {
	query := `
		SELECT id, code, name, description, created_at, updated_at
		FROM coursequiz.courses
		ORDER BY code`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	courses := make([]*models.Course, 0)
	for rows.Next() {
		course := &models.Course{}
		if err := rows.Scan(&course.ID, &course.Code, &course.Name, &course.Description, &course.CreatedAt, &course.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, course)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over courses: %w", err)
	}
	return courses, nil
}

func (r *PostgresCourseRepository) UpdateCourse(ctx context.Context, course *models.Course) error {
	query := `
		UPDATE coursequiz.courses
		SET code = $2, name = $3, description = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	row := r.q.QueryRowContext(ctx, query, course.ID, course.Code, course.Name, course.Description)
	if err := row.Scan(&course.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return fmt.Errorf("course with id %s %w", course.ID, models.ErrNotFound)
		}
		return fmt.Errorf("failed to update course: %w", mapWriteError(err, "course code "+course.Code))
	}
	return nil
}

func (r *PostgresCourseRepository) DeleteCourse(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, "DELETE FROM coursequiz.courses WHERE id = $1", id)
	if err != nil {
		if isInvalidID(err) {
			return fmt.Errorf("course with id %s %w", id, models.ErrNotFound)
		}
		return fmt.Errorf("failed to delete course: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("course with id %s %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *PostgresCourseRepository) CountCourses(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM coursequiz.courses").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return count, nil
}
