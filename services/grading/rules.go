package grading

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"coursequiz/models"
)

// CalculationTolerance is the inclusive absolute error accepted for
// calculation answers.
const CalculationTolerance = 0.01

// GradeMCQ compares the chosen letter with the key, ignoring case and
// surrounding space.
func GradeMCQ(student string, key models.LetterKey) bool {
	return strings.ToUpper(strings.TrimSpace(student)) == strings.ToUpper(strings.TrimSpace(key.Letter))
}

// GradeTrueFalse accepts a native boolean or any text form of one.
func GradeTrueFalse(student any, key models.BooleanKey) bool {
	var answer string
	switch v := student.(type) {
	case bool:
		answer = strconv.FormatBool(v)
	default:
		answer = strings.ToLower(strings.TrimSpace(models.AnswerText(v)))
	}
	return answer == key.Raw()
}

// GradeCalculation is false for anything that does not parse as a number.
func GradeCalculation(student string, key models.NumericKey) bool {
	value, err := strconv.ParseFloat(strings.TrimSpace(student), 64)
	if err != nil || math.IsNaN(value) {
		return false
	}
	// the epsilon keeps the boundary inclusive under float rounding
	return math.Abs(value-key.Value) <= CalculationTolerance+1e-9
}

// decodeAnswer turns a raw submitted answer into a JSON scalar. Input that is
// not valid JSON is taken as plain text.
func decodeAnswer(raw json.RawMessage) any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	return v
}

func answerText(raw json.RawMessage) string {
	switch v := decodeAnswer(raw).(type) {
	case map[string]any, []any:
		return string(raw)
	default:
		return models.AnswerText(v)
	}
}

// isBlank reports whether raw carries no answer at all.
func isBlank(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
