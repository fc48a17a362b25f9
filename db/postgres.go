package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coursequiz/models"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type PostgresStore struct {
	db   *sql.DB
	q    querier
	inTx bool
}

func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := ensureSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return NewPostgresStoreFromDB(db), nil
}

// NewPostgresStoreFromDB wraps an already opened handle without touching the schema.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

func (s *PostgresStore) Users() UserRepository {
	return &PostgresUserRepository{q: s.q}
}

func (s *PostgresStore) Courses() CourseRepository {
	return &PostgresCourseRepository{q: s.q}
}

func (s *PostgresStore) Questions() QuestionRepository {
	return &PostgresQuestionRepository{q: s.q}
}

func (s *PostgresStore) Sessions() SessionRepository {
	return &PostgresSessionRepository{q: s.q}
}

func (s *PostgresStore) GenerationLogs() GenerationLogRepository {
	return &PostgresGenerationLogRepository{q: s.q}
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&PostgresStore{db: s.db, q: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Errorf("Failed to roll back transaction: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaPostgres)
	return err
}

// mapWriteError converts driver errors into the domain taxonomy.
// isInvalidID reports whether Postgres rejected a malformed UUID parameter.
func isInvalidID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22P02"
}

func mapWriteError(err error, what string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s already exists", models.ErrConflict, what)
	}
	return err
}

const schemaPostgres = `
CREATE SCHEMA IF NOT EXISTS coursequiz;

CREATE TABLE IF NOT EXISTS coursequiz.users (
  id            UUID PRIMARY KEY,
  email         TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role          TEXT NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS coursequiz.courses (
  id          UUID PRIMARY KEY,
  code        TEXT NOT NULL UNIQUE,
  name        TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS coursequiz.questions (
  id                 UUID PRIMARY KEY,
  seq                BIGSERIAL,
  course_id          UUID NOT NULL REFERENCES coursequiz.courses(id) ON DELETE CASCADE,
  type               TEXT NOT NULL,
  difficulty         TEXT NOT NULL,
  question_text      TEXT NOT NULL,
  correct_answer     JSONB NOT NULL,
  explanation        TEXT NOT NULL DEFAULT '',
  is_ai_generated    BOOLEAN NOT NULL DEFAULT false,
  created_by_user_id UUID REFERENCES coursequiz.users(id) ON DELETE SET NULL,
  content_hash       TEXT NOT NULL,
  created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (course_id, content_hash)
);

CREATE TABLE IF NOT EXISTS coursequiz.question_options (
  id            UUID PRIMARY KEY,
  question_id   UUID NOT NULL REFERENCES coursequiz.questions(id) ON DELETE CASCADE,
  option_text   TEXT NOT NULL,
  option_letter TEXT NOT NULL DEFAULT '',
  is_correct    BOOLEAN NOT NULL DEFAULT false,
  position      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS coursequiz.quiz_sessions (
  id               UUID PRIMARY KEY,
  student_id       UUID NOT NULL REFERENCES coursequiz.users(id) ON DELETE CASCADE,
  course_id        UUID NOT NULL REFERENCES coursequiz.courses(id) ON DELETE CASCADE,
  config           JSONB NOT NULL,
  question_ids     TEXT[] NOT NULL,
  duration_minutes INTEGER NOT NULL,
  status           TEXT NOT NULL,
  started_at       TIMESTAMPTZ,
  completed_at     TIMESTAMPTZ,
  score            DOUBLE PRECISION,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS coursequiz.quiz_responses (
  id             UUID PRIMARY KEY,
  session_id     UUID NOT NULL REFERENCES coursequiz.quiz_sessions(id) ON DELETE CASCADE,
  question_id    UUID NOT NULL,
  student_answer JSONB,
  is_correct     BOOLEAN NOT NULL,
  points_earned  DOUBLE PRECISION NOT NULL,
  feedback       TEXT NOT NULL DEFAULT '',
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS coursequiz.ai_generation_logs (
  id                  UUID PRIMARY KEY,
  user_id             UUID NOT NULL,
  course_id           UUID NOT NULL,
  prompt              TEXT NOT NULL,
  raw_response        TEXT NOT NULL,
  questions_generated INTEGER NOT NULL,
  questions_stored    INTEGER NOT NULL,
  duplicates_found    INTEGER NOT NULL,
  created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS questions_course_seq_idx ON coursequiz.questions (course_id, seq);
CREATE INDEX IF NOT EXISTS quiz_sessions_student_idx ON coursequiz.quiz_sessions (student_id, created_at DESC);
`
