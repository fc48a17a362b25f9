package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"coursequiz/models"
	"coursequiz/services/llm"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultDurationMinutes = 30
	generationTemperature  = 0.7
)

// GenerationError reports a failed generation call or an unusable reply.
type GenerationError struct {
	Stage  string
	Status int
	Body   string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("error generating questions: upstream returned %d - %s", e.Status, e.Body)
	}
	return fmt.Sprintf("error generating questions (%s): %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() []error {
	return []error{models.ErrUpstream, e.Err}
}

type GenerateRequest struct {
	CourseName     string
	Format         models.QuestionType
	Difficulty     models.Difficulty
	Count          int
	MixedBreakdown map[string]int
}

type GenerationResult struct {
	Prompt          string
	RawResponse     string
	DurationMinutes int
	Drafts          []Draft
}

type Generator struct {
	client  llm.ChatClient
	timeout time.Duration
}

func NewGenerator(client llm.ChatClient, timeout time.Duration) *Generator {
	return &Generator{client: client, timeout: timeout}
}

func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (*GenerationResult, error) {
	prompt := BuildPrompt(req)

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	log.Infof("Requesting %d %s questions for course %s", req.Count, describeFormat(req), req.CourseName)
	reply, err := g.client.Complete(ctx, llm.ChatRequest{
		System:      GENERATION_SYSTEM_PROMPT,
		Prompt:      prompt,
		Temperature: generationTemperature,
		JSON:        true,
		Shape:       QuizDraft{},
	})
	if err != nil {
		genErr := &GenerationError{Stage: "request", Err: err}
		var upstream *llm.UpstreamError
		if errors.As(err, &upstream) {
			genErr.Status = upstream.Status
			genErr.Body = upstream.Body
		}
		log.WithFields(log.Fields{"status": genErr.Status}).Errorf("Question generation failed: %v", err)
		return nil, genErr
	}

	draft, err := ParseReply(reply)
	if err != nil {
		log.Errorf("Failed to parse generation reply: %v", err)
		return nil, &GenerationError{Stage: "parse", Body: reply, Err: err}
	}

	duration := int(math.Round(draft.DurationMinutes))
	if duration <= 0 {
		duration = DefaultDurationMinutes
	}

	log.Infof("Model returned %d question drafts, duration %d minutes", len(draft.Questions), duration)
	return &GenerationResult{
		Prompt:          prompt,
		RawResponse:     reply,
		DurationMinutes: duration,
		Drafts:          draft.Questions,
	}, nil
}

// ParseReply decodes a generation reply, tolerating code fences.
func ParseReply(reply string) (*QuizDraft, error) {
	var draft QuizDraft
	if err := json.Unmarshal([]byte(llm.ExtractJSON(reply)), &draft); err != nil {
		return nil, fmt.Errorf("reply is not valid quiz JSON: %w", err)
	}
	return &draft, nil
}

func BuildPrompt(req GenerateRequest) string {
	return fmt.Sprintf(GENERATION_PROMPT, req.Difficulty, req.Count, describeFormat(req), req.CourseName)
}

// describeFormat renders "2 mcq, 1 essay" for mixed quizzes, keys sorted.
func describeFormat(req GenerateRequest) string {
	if req.Format != models.QuestionTypeMixed || len(req.MixedBreakdown) == 0 {
		return string(req.Format)
	}

	types := lo.Keys(req.MixedBreakdown)
	sort.Strings(types)
	parts := lo.Map(types, func(t string, _ int) string {
		return fmt.Sprintf("%d %s", req.MixedBreakdown[t], t)
	})
	return strings.Join(parts, ", ")
}
