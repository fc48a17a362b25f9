package models

import "encoding/json"

type GenerateQuizRequest struct {
	CourseID      string         `json:"course_id" validate:"required"`
	Format        string         `json:"format" validate:"required,oneof=mcq true_false tf essay calculation mixed"`
	Difficulty    string         `json:"difficulty" validate:"required,oneof=beginner intermediate advanced"`
	QuestionCount int            `json:"question_count" validate:"required,min=1,max=50"`
	MixedConfig   map[string]int `json:"mixed_config,omitempty" validate:"omitempty,dive,keys,oneof=mcq true_false tf essay calculation,endkeys,min=1"`
}

type AnswerSubmission struct {
	QuestionID string          `json:"question_id" validate:"required"`
	Answer     json.RawMessage `json:"answer"`
}

type SubmitQuizRequest struct {
	Answers []AnswerSubmission `json:"answers" validate:"dive"`
}

// OptionView is an option as shown to the quiz taker. IsCorrect is always
// false before grading.
type OptionView struct {
	ID        string `json:"id"`
	Text      string `json:"option_text"`
	Letter    string `json:"option_letter,omitempty"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionView omits the answer key and the explanation.
type QuestionView struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	Difficulty  Difficulty   `json:"difficulty"`
	Text        string       `json:"question_text"`
	Options     []OptionView `json:"options"`
	Explanation *string      `json:"explanation"`
}

type QuizSessionView struct {
	SessionID       string         `json:"session_id"`
	Status          SessionStatus  `json:"status"`
	DurationMinutes int            `json:"duration_minutes"`
	Questions       []QuestionView `json:"questions"`
}

// NewQuestionView hides everything that would give the answer away.
func NewQuestionView(q *Question) QuestionView {
	options := make([]OptionView, 0, len(q.Options))
	for _, o := range q.Options {
		options = append(options, OptionView{ID: o.ID, Text: o.Text, Letter: o.Letter})
	}
	return QuestionView{
		ID:         q.ID,
		Type:       q.Type,
		Difficulty: q.Difficulty,
		Text:       q.Text,
		Options:    options,
	}
}

type QuestionResult struct {
	QuestionID    string          `json:"question_id"`
	QuestionText  string          `json:"question_text"`
	QuestionType  QuestionType    `json:"question_type"`
	CorrectAnswer string          `json:"correct_answer"`
	StudentAnswer json.RawMessage `json:"student_answer"`
	IsCorrect     bool            `json:"is_correct"`
	PointsEarned  float64         `json:"points_earned"`
	Explanation   string          `json:"explanation"`
	Feedback      string          `json:"feedback"`
}

type QuizResults struct {
	SessionID      string           `json:"session_id"`
	Score          float64          `json:"score"`
	TotalQuestions int              `json:"total_questions"`
	CorrectAnswers int              `json:"correct_answers"`
	Results        []QuestionResult `json:"results"`
}
