package grading

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"coursequiz/models"
	"coursequiz/services/llm"

	log "github.com/sirupsen/logrus"
)

const (
	PointsPerQuestion = 1.0
	PassingScore      = 70

	NoAnswerFeedback    = "No answer provided."
	UnknownTypeFeedback = "Unknown question type"

	essayTemperature = 0.3

	ESSAY_SYSTEM_PROMPT = `You are a helpful assistant that grades student essays. Always respond with valid JSON only.`

	ESSAY_PROMPT = `You are grading a student's essay response for a quiz question.

Question: %s

Expected Answer/Key Points: %s

Explanation: %s

Student's Answer:
%s

Please evaluate the student's answer based on:
1. Accuracy of understanding (40%%)
2. Completeness of response (30%%)
3. Clarity and organization (20%%)
4. Use of appropriate terminology (10%%)

Provide:
1. A score from 0-100
2. Brief feedback explaining strengths and weaknesses

Output ONLY valid JSON:
{
  "score": <number 0-100>,
  "feedback": "<detailed feedback>",
  "is_passing": <true if score >= 70>
}`
)

// EssayVerdict is the reply shape of the essay rubric call.
type EssayVerdict struct {
	Score     float64 `json:"score" jsonschema:"minimum=0,maximum=100"`
	Feedback  string  `json:"feedback"`
	IsPassing *bool   `json:"is_passing"`
}

// Outcome is the graded result of one answer.
type Outcome struct {
	IsCorrect bool
	Points    float64
	Feedback  string
}

type Grader struct {
	client  llm.ChatClient
	timeout time.Duration
}

// NewGrader builds a grader. client may be nil, in which case essays are
// always graded by keyword overlap.
func NewGrader(client llm.ChatClient, timeout time.Duration) *Grader {
	return &Grader{client: client, timeout: timeout}
}

// Grade scores one answer. answered is false when the student submitted
// nothing for the question.
func (g *Grader) Grade(ctx context.Context, q *models.Question, raw json.RawMessage, answered bool) Outcome {
	if !answered || isBlank(raw) {
		return Outcome{Feedback: NoAnswerFeedback}
	}

	var correct bool
	switch key := q.CorrectAnswer.(type) {
	case models.LetterKey:
		correct = GradeMCQ(answerText(raw), key)
	case models.BooleanKey:
		correct = GradeTrueFalse(decodeAnswer(raw), key)
	case models.NumericKey:
		correct = GradeCalculation(answerText(raw), key)
	case models.TextKey:
		passing, feedback := g.GradeEssay(ctx, q, answerText(raw))
		return Outcome{IsCorrect: passing, Points: points(passing), Feedback: feedback}
	default:
		log.Warnf("Question %s has no gradable answer key", q.ID)
		return Outcome{Feedback: UnknownTypeFeedback}
	}

	feedback := q.Explanation
	if !correct {
		feedback = strings.TrimSpace("Incorrect. " + q.Explanation)
	}
	return Outcome{IsCorrect: correct, Points: points(correct), Feedback: feedback}
}

func points(correct bool) float64 {
	if correct {
		return PointsPerQuestion
	}
	return 0
}

// GradeEssay asks the model to grade the answer against the rubric. Any
// failure falls back to keyword overlap with the expected key points.
func (g *Grader) GradeEssay(ctx context.Context, q *models.Question, answer string) (bool, string) {
	expected := ""
	if q.CorrectAnswer != nil {
		expected = q.CorrectAnswer.Raw()
	}

	if g.client == nil {
		return KeywordFallback(answer, expected, fmt.Errorf("%w: no grading model configured", models.ErrUpstream))
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	reply, err := g.client.Complete(ctx, llm.ChatRequest{
		System:      ESSAY_SYSTEM_PROMPT,
		Prompt:      fmt.Sprintf(ESSAY_PROMPT, q.Text, expected, q.Explanation, answer),
		Temperature: essayTemperature,
		JSON:        true,
		Shape:       EssayVerdict{},
	})
	if err != nil {
		log.WithFields(log.Fields{"question_id": q.ID}).Warnf("Essay grading failed, using keyword fallback: %v", err)
		return KeywordFallback(answer, expected, err)
	}

	var verdict EssayVerdict
	if err := json.Unmarshal([]byte(llm.ExtractJSON(reply)), &verdict); err != nil {
		log.WithFields(log.Fields{"question_id": q.ID}).Warnf("Essay grading reply unparseable, using keyword fallback: %v", err)
		return KeywordFallback(answer, expected, fmt.Errorf("%w: unparseable grading reply: %v", models.ErrUpstream, err))
	}

	passing := verdict.Score >= PassingScore
	if verdict.IsPassing != nil {
		passing = *verdict.IsPassing
	}
	feedback := verdict.Feedback
	if feedback == "" {
		feedback = "No feedback provided."
	}

	log.Debugf("Essay for question %s scored %.0f", q.ID, verdict.Score)
	return passing, feedback
}

// KeywordFallback passes the answer when at least half of the expected key
// words appear in it.
func KeywordFallback(answer, expected string, cause error) (bool, string) {
	student := strings.ToLower(answer)
	keywords := strings.Fields(strings.ToLower(expected))

	matches := 0
	for _, word := range keywords {
		if strings.Contains(student, word) {
			matches++
		}
	}

	passing := float64(matches) >= float64(len(keywords))*0.5
	return passing, fmt.Sprintf("Automatic grading unavailable. Error: %v", cause)
}
