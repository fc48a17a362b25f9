package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AnswerKey is the typed correct-answer payload of a question. The concrete
// variant is fixed by the question type.
type AnswerKey interface {
	Raw() string
	answerKey()
}

// LetterKey is the key of a multiple-choice question.
type LetterKey struct {
	Letter string
}

// BooleanKey is the key of a true/false question.
type BooleanKey struct {
	Value bool
}

// NumericKey is the key of a calculation question.
type NumericKey struct {
	Value float64
	Text  string
}

// TextKey holds the expected key points of an essay question.
type TextKey struct {
	Text string
}

// UnresolvedKey wraps a stored payload that does not fit its question type.
// It never grades as correct.
type UnresolvedKey struct {
	Type QuestionType
	Text string
}

func (k LetterKey) Raw() string     { return k.Letter }
func (k BooleanKey) Raw() string    { return strconv.FormatBool(k.Value) }
func (k NumericKey) Raw() string    { return k.Text }
func (k TextKey) Raw() string       { return k.Text }
func (k UnresolvedKey) Raw() string { return k.Text }

func (LetterKey) answerKey()     {}
func (BooleanKey) answerKey()    {}
func (NumericKey) answerKey()    {}
func (TextKey) answerKey()       {}
func (UnresolvedKey) answerKey() {}

// ParseAnswerKey builds the key variant for the question type, rejecting
// payloads that do not fit it.
func ParseAnswerKey(t QuestionType, raw string) (AnswerKey, error) {
	value := strings.TrimSpace(raw)

	switch t {
	case QuestionTypeMCQ:
		if value == "" {
			return nil, fmt.Errorf("%w: multiple-choice answer is required", ErrValidation)
		}
		return LetterKey{Letter: strings.ToUpper(value)}, nil
	case QuestionTypeTrueFalse:
		switch strings.ToLower(value) {
		case "true":
			return BooleanKey{Value: true}, nil
		case "false":
			return BooleanKey{Value: false}, nil
		}
		return nil, fmt.Errorf("%w: true/false answer must be \"true\" or \"false\", got %q", ErrValidation, raw)
	case QuestionTypeCalculation:
		number, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: calculation answer must be numeric, got %q", ErrValidation, raw)
		}
		return NumericKey{Value: number, Text: value}, nil
	case QuestionTypeEssay:
		return TextKey{Text: raw}, nil
	}

	return nil, fmt.Errorf("%w: questions cannot have type %q", ErrValidation, t)
}

// LoadAnswerKey is the lenient form of ParseAnswerKey used when reading
// stored rows.
func LoadAnswerKey(t QuestionType, raw string) AnswerKey {
	key, err := ParseAnswerKey(t, raw)
	if err != nil {
		return UnresolvedKey{Type: t, Text: raw}
	}
	return key
}

type storedAnswer struct {
	Answer any `json:"answer"`
}

// EncodeAnswerKey renders the persisted document form {"answer": "..."}.
func EncodeAnswerKey(key AnswerKey) ([]byte, error) {
	raw := ""
	if key != nil {
		raw = key.Raw()
	}
	return json.Marshal(storedAnswer{Answer: raw})
}

// DecodeAnswerKey reads the persisted document form. Scalars other than
// strings are accepted so rows written by older clients still load.
func DecodeAnswerKey(t QuestionType, data []byte) (AnswerKey, error) {
	var doc storedAnswer
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode correct answer: %w", err)
	}
	return LoadAnswerKey(t, AnswerText(doc.Answer)), nil
}

// AnswerText converts a decoded JSON scalar into its text form.
func AnswerText(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case json.Number:
		return value.String()
	default:
		return fmt.Sprint(value)
	}
}
