package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"coursequiz/models"
)

// FlexString accepts a JSON string, number or boolean and keeps its text.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch v.(type) {
	case map[string]any, []any:
		return fmt.Errorf("correct_answer must be a scalar, got %s", string(data))
	}
	*f = FlexString(models.AnswerText(v))
	return nil
}

// Draft is one question as the model produced it.
type Draft struct {
	Type          string     `json:"type" jsonschema:"enum=mcq,enum=tf,enum=essay,enum=calculation"`
	Difficulty    string     `json:"difficulty" jsonschema:"enum=beginner,enum=intermediate,enum=advanced"`
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer FlexString `json:"correct_answer"`
	Explanation   string     `json:"explanation"`
}

// QuizDraft is the reply shape of a generation call.
type QuizDraft struct {
	DurationMinutes float64 `json:"duration_minutes"`
	Questions       []Draft `json:"questions"`
}

// ToQuestion converts the draft into an AI-generated question for courseID.
// Drafts that cannot satisfy the question invariants are rejected with
// models.ErrValidation.
func (d Draft) ToQuestion(courseID string, fallback models.Difficulty) (*models.Question, error) {
	qType, err := models.ParseQuestionType(d.Type)
	if err != nil {
		return nil, err
	}
	if qType == models.QuestionTypeMixed {
		return nil, fmt.Errorf("%w: a question cannot have type mixed", models.ErrValidation)
	}

	difficulty, err := models.ParseDifficulty(d.Difficulty)
	if err != nil {
		difficulty = fallback
	}

	text := strings.TrimSpace(d.Question)
	if text == "" {
		return nil, fmt.Errorf("%w: question text is empty", models.ErrValidation)
	}

	question := &models.Question{
		CourseID:      courseID,
		Type:          qType,
		Difficulty:    difficulty,
		Text:          text,
		Explanation:   strings.TrimSpace(d.Explanation),
		IsAIGenerated: true,
	}

	switch qType {
	case models.QuestionTypeMCQ:
		texts := mcqOptionTexts(d.Options)
		letter, err := resolveLetter(string(d.CorrectAnswer), texts)
		if err != nil {
			return nil, err
		}
		key := models.LetterKey{Letter: letter}
		question.CorrectAnswer = key
		question.Options = models.LetterOptions(texts, key)
	case models.QuestionTypeTrueFalse:
		key, err := models.ParseAnswerKey(qType, string(d.CorrectAnswer))
		if err != nil {
			return nil, err
		}
		question.CorrectAnswer = key
		question.Options = models.TrueFalseOptions(key.(models.BooleanKey))
	default:
		key, err := models.ParseAnswerKey(qType, string(d.CorrectAnswer))
		if err != nil {
			return nil, err
		}
		question.CorrectAnswer = key
	}

	if err := question.CheckOptions(); err != nil {
		return nil, err
	}
	return question, nil
}

func mcqOptionTexts(options []string) []string {
	texts := make([]string, 0, len(models.MCQLetters))
	for _, o := range options {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		texts = append(texts, stripOptionLabel(o, models.MCQLetters[len(texts)]))
		if len(texts) == len(models.MCQLetters) {
			break
		}
	}
	return texts
}

// stripOptionLabel drops a leading "A)", "A." or "A:" when it matches the
// letter the option is stored under.
func stripOptionLabel(option, letter string) string {
	if len(option) < 2 || !strings.EqualFold(option[:1], letter) || !strings.ContainsRune(").:", rune(option[1])) {
		return option
	}
	if rest := strings.TrimSpace(option[2:]); rest != "" {
		return rest
	}
	return option
}

// resolveLetter maps the model's answer to an option letter. It accepts a
// bare letter, a labelled answer like "B) ..." or "B. ...", or the text of
// one of the options.
func resolveLetter(answer string, options []string) (string, error) {
	answer = strings.TrimSpace(answer)
	letters := models.MCQLetters[:len(options)]

	upper := strings.ToUpper(answer)
	for _, l := range letters {
		if upper == l {
			return l, nil
		}
	}
	if len(upper) > 1 && (upper[1] == ')' || upper[1] == '.' || upper[1] == ':') {
		for _, l := range letters {
			if upper[:1] == l {
				return l, nil
			}
		}
	}

	normalized := models.NormalizeText(answer)
	for i, o := range options {
		if models.NormalizeText(o) == normalized {
			return letters[i], nil
		}
	}
	return "", fmt.Errorf("%w: answer %q does not match any of %d options", models.ErrValidation, answer, len(options))
}
