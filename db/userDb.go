package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"coursequiz/models"
)

type PostgresUserRepository struct {
	q querier
}

func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO coursequiz.users (id, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	row := r.q.QueryRowContext(ctx, query, user.ID, user.Email, user.PasswordHash, user.Role)
	if err := row.Scan(&user.CreatedAt); err != nil {
		return fmt.Errorf("failed to create user: %w", mapWriteError(err, "email "+user.Email))
	}
	return nil
}

func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, role, created_at
		FROM coursequiz.users
		WHERE id = $1`

	user, err := scanUser(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, fmt.Errorf("user with id %s %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, role, created_at
		FROM coursequiz.users
		WHERE email = $1`

	user, err := scanUser(r.q.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s %w", email, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM coursequiz.users").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt); err != nil {
		return nil, err
	}
	return user, nil
}
