package models

import "time"

// AIGenerationLog is an append-only audit row written once per generated quiz.
type AIGenerationLog struct {
	ID                 string    `json:"id" db:"id"`
	UserID             string    `json:"user_id" db:"user_id"`
	CourseID           string    `json:"course_id" db:"course_id"`
	Prompt             string    `json:"prompt" db:"prompt"`
	RawResponse        string    `json:"raw_response" db:"raw_response"`
	QuestionsGenerated int       `json:"questions_generated" db:"questions_generated"`
	QuestionsStored    int       `json:"questions_stored" db:"questions_stored"`
	DuplicatesFound    int       `json:"duplicates_found" db:"duplicates_found"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

type Stats struct {
	TotalQuestions       int `json:"total_questions"`
	AIGeneratedQuestions int `json:"ai_generated_questions"`
	ManualQuestions      int `json:"manual_questions"`
	TotalCourses         int `json:"total_courses"`
	TotalQuizzes         int `json:"total_quizzes"`
	TotalUsers           int `json:"total_users"`
}
