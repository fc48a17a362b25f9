package models

import (
	"encoding/json"
	"time"
)

type SessionStatus string

const (
	SessionPending    SessionStatus = "pending"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// QuestionSet is the ordered list of question ids frozen into a session when
// it is generated. It has no mutators; every accessor hands out a copy.
type QuestionSet struct {
	ids []string
}

func NewQuestionSet(ids []string) QuestionSet {
	frozen := make([]string, len(ids))
	copy(frozen, ids)
	return QuestionSet{ids: frozen}
}

func (s QuestionSet) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s QuestionSet) Len() int {
	return len(s.ids)
}

func (s QuestionSet) IsEmpty() bool {
	return len(s.ids) == 0
}

func (s QuestionSet) MarshalJSON() ([]byte, error) {
	if s.ids == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.ids)
}

func (s *QuestionSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewQuestionSet(ids)
	return nil
}

// QuizConfig is the request snapshot stored with a session.
type QuizConfig struct {
	Format         QuestionType   `json:"format"`
	Difficulty     Difficulty     `json:"difficulty"`
	QuestionCount  int            `json:"question_count"`
	MixedBreakdown map[string]int `json:"mixed_breakdown,omitempty"`
}

type QuizSession struct {
	ID              string        `json:"id" db:"id"`
	StudentID       string        `json:"student_id" db:"student_id"`
	CourseID        string        `json:"course_id" db:"course_id"`
	Config          QuizConfig    `json:"config" db:"config"`
	QuestionIDs     QuestionSet   `json:"question_ids" db:"question_ids"`
	DurationMinutes int           `json:"duration_minutes" db:"duration_minutes"`
	Status          SessionStatus `json:"status" db:"status"`
	StartedAt       *time.Time    `json:"started_at,omitempty" db:"started_at"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
	Score           *float64      `json:"score,omitempty" db:"score"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
}

type QuizResponse struct {
	ID            string          `json:"id" db:"id"`
	SessionID     string          `json:"session_id" db:"session_id"`
	QuestionID    string          `json:"question_id" db:"question_id"`
	StudentAnswer json.RawMessage `json:"student_answer" db:"student_answer"`
	IsCorrect     bool            `json:"is_correct" db:"is_correct"`
	PointsEarned  float64         `json:"points_earned" db:"points_earned"`
	Feedback      string          `json:"feedback" db:"feedback"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// HistoryEntry is one row of a student's quiz history.
type HistoryEntry struct {
	SessionID       string        `json:"id"`
	CourseID        string        `json:"course_id"`
	CourseName      string        `json:"course_name"`
	Status          SessionStatus `json:"status"`
	Score           *float64      `json:"score,omitempty"`
	QuestionCount   int           `json:"question_count"`
	DurationMinutes int           `json:"duration_minutes"`
	CreatedAt       time.Time     `json:"created_at"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
}
