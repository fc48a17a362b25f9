package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type QuestionType string

const (
	QuestionTypeMCQ         QuestionType = "mcq"
	QuestionTypeTrueFalse   QuestionType = "true_false"
	QuestionTypeEssay       QuestionType = "essay"
	QuestionTypeCalculation QuestionType = "calculation"
	QuestionTypeMixed       QuestionType = "mixed"
)

// ParseQuestionType accepts the stored names plus the short "tf" alias the
// model tends to emit.
func ParseQuestionType(s string) (QuestionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mcq", "multiple_choice":
		return QuestionTypeMCQ, nil
	case "true_false", "tf", "truefalse":
		return QuestionTypeTrueFalse, nil
	case "essay":
		return QuestionTypeEssay, nil
	case "calculation":
		return QuestionTypeCalculation, nil
	case "mixed":
		return QuestionTypeMixed, nil
	}
	return "", fmt.Errorf("%w: unknown question type %q", ErrValidation, s)
}

// HasOptions reports whether questions of this type carry an option list.
func (t QuestionType) HasOptions() bool {
	return t == QuestionTypeMCQ || t == QuestionTypeTrueFalse
}

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return d, nil
	}
	return "", fmt.Errorf("%w: unknown difficulty %q", ErrValidation, s)
}

// MCQLetters are the labels assigned to multiple-choice options, in order.
var MCQLetters = []string{"A", "B", "C", "D"}

type Option struct {
	ID         string `json:"id" db:"id"`
	QuestionID string `json:"question_id" db:"question_id"`
	Text       string `json:"option_text" db:"option_text"`
	Letter     string `json:"option_letter,omitempty" db:"option_letter"`
	IsCorrect  bool   `json:"is_correct" db:"is_correct"`
	Position   int    `json:"-" db:"position"`
}

type Question struct {
	ID            string       `json:"id" db:"id"`
	CourseID      string       `json:"course_id" db:"course_id"`
	Type          QuestionType `json:"type" db:"type"`
	Difficulty    Difficulty   `json:"difficulty" db:"difficulty"`
	Text          string       `json:"question_text" db:"question_text"`
	CorrectAnswer AnswerKey    `json:"-" db:"correct_answer"`
	Explanation   string       `json:"explanation,omitempty" db:"explanation"`
	IsAIGenerated bool         `json:"is_ai_generated" db:"is_ai_generated"`
	CreatedBy     *string      `json:"created_by_user_id,omitempty" db:"created_by_user_id"`
	ContentHash   string       `json:"-" db:"content_hash"`
	Options       []Option     `json:"options"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
}

// MarshalJSON adds the raw answer key, which the struct tags hide.
func (q Question) MarshalJSON() ([]byte, error) {
	type plain Question
	answer := ""
	if q.CorrectAnswer != nil {
		answer = q.CorrectAnswer.Raw()
	}
	return json.Marshal(struct {
		plain
		CorrectAnswer string `json:"correct_answer"`
	}{plain: plain(q), CorrectAnswer: answer})
}

// CheckOptions enforces the option invariants of choice questions: MCQ has
// at most four letter-labelled options, true/false has exactly "True" and
// "False", and exactly one option is correct and agrees with the key.
func (q *Question) CheckOptions() error {
	if !q.Type.HasOptions() {
		if len(q.Options) > 0 {
			return fmt.Errorf("%w: %s questions do not take options", ErrValidation, q.Type)
		}
		return nil
	}

	correct := 0
	var correctOption Option
	for _, o := range q.Options {
		if o.IsCorrect {
			correct++
			correctOption = o
		}
	}
	if correct != 1 {
		return fmt.Errorf("%w: exactly one option must be correct, got %d", ErrValidation, correct)
	}

	switch key := q.CorrectAnswer.(type) {
	case LetterKey:
		if len(q.Options) == 0 || len(q.Options) > len(MCQLetters) {
			return fmt.Errorf("%w: multiple-choice questions need between 1 and %d options", ErrValidation, len(MCQLetters))
		}
		for i, o := range q.Options {
			if o.Letter != MCQLetters[i] {
				return fmt.Errorf("%w: option %d must be labelled %s", ErrValidation, i+1, MCQLetters[i])
			}
		}
		if correctOption.Letter != key.Letter {
			return fmt.Errorf("%w: correct option %s does not match answer %s", ErrValidation, correctOption.Letter, key.Letter)
		}
	case BooleanKey:
		if len(q.Options) != 2 || q.Options[0].Text != "True" || q.Options[1].Text != "False" {
			return fmt.Errorf("%w: true/false questions need exactly the options True and False", ErrValidation)
		}
		if (correctOption.Text == "True") != key.Value {
			return fmt.Errorf("%w: correct option %s does not match answer %t", ErrValidation, correctOption.Text, key.Value)
		}
	default:
		return fmt.Errorf("%w: answer key does not fit a %s question", ErrValidation, q.Type)
	}
	return nil
}

// LetterOptions labels MCQ option texts A-D and marks the one matching key.
func LetterOptions(texts []string, key LetterKey) []Option {
	options := make([]Option, 0, len(texts))
	for i, text := range texts {
		if i >= len(MCQLetters) {
			break
		}
		options = append(options, Option{
			Text:      text,
			Letter:    MCQLetters[i],
			IsCorrect: MCQLetters[i] == key.Letter,
			Position:  i,
		})
	}
	return options
}

// TrueFalseOptions returns the fixed True/False pair for key.
func TrueFalseOptions(key BooleanKey) []Option {
	return []Option{
		{Text: "True", IsCorrect: key.Value, Position: 0},
		{Text: "False", IsCorrect: !key.Value, Position: 1},
	}
}

// NormalizeText case-folds and collapses whitespace for exact duplicate
// comparison.
func NormalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// ContentHash is the course-scoped uniqueness key of a question text.
func ContentHash(courseID, text string) string {
	sum := sha256.Sum256([]byte(courseID + "\x00" + NormalizeText(text)))
	return hex.EncodeToString(sum[:])
}

type OptionInput struct {
	Text      string `json:"option_text" validate:"required"`
	Letter    string `json:"option_letter,omitempty" validate:"omitempty,len=1"`
	IsCorrect bool   `json:"is_correct"`
}

type CreateQuestionRequest struct {
	CourseID      string        `json:"course_id" validate:"required"`
	Type          string        `json:"type" validate:"required,oneof=mcq true_false tf essay calculation"`
	Difficulty    string        `json:"difficulty" validate:"required,oneof=beginner intermediate advanced"`
	QuestionText  string        `json:"question_text" validate:"required"`
	CorrectAnswer string        `json:"correct_answer" validate:"required"`
	Explanation   string        `json:"explanation"`
	Options       []OptionInput `json:"options" validate:"dive"`
}

type UpdateQuestionRequest struct {
	Difficulty    *string        `json:"difficulty,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`
	QuestionText  *string        `json:"question_text,omitempty" validate:"omitempty,min=1"`
	CorrectAnswer *string        `json:"correct_answer,omitempty" validate:"omitempty,min=1"`
	Explanation   *string        `json:"explanation,omitempty"`
	Options       *[]OptionInput `json:"options,omitempty" validate:"omitempty,dive"`
}

// QuestionFilter narrows bank listings. Zero values mean "any".
type QuestionFilter struct {
	CourseID      string
	Difficulty    Difficulty
	Type          QuestionType
	IsAIGenerated *bool
	Search        string
	Limit         int
	Offset        int
}
