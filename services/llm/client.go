package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"coursequiz/models"
)

// ChatClient sends one chat-completion request and returns the reply text.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

type ChatRequest struct {
	System      string
	Prompt      string
	Temperature float64
	// JSON asks the provider for a JSON object reply.
	JSON bool
	// Shape is a zero value of the struct the reply should decode into.
	// Providers that support forced tool calls derive a schema from it.
	Shape any
}

// UpstreamError reports a failed call to a model provider.
type UpstreamError struct {
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s API error: %d - %s", e.Provider, e.Status, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s API error: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s API error: %s", e.Provider, e.Body)
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{models.ErrUpstream}
	}
	return []error{models.ErrUpstream, e.Err}
}

var statusPattern = regexp.MustCompile(`status code:? (\d{3})`)

// statusFromError pulls an HTTP status out of a client error message.
func statusFromError(err error) int {
	match := statusPattern.FindStringSubmatch(err.Error())
	if match == nil {
		return 0
	}
	status, _ := strconv.Atoi(match[1])
	return status
}

// ExtractJSON strips a ```json or ``` fence and any chatter around the
// outermost JSON object.
func ExtractJSON(content string) string {
	text := strings.TrimSpace(content)

	if start := strings.Index(text, "```json"); start >= 0 {
		text = text[start+len("```json"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	} else if start := strings.Index(text, "```"); start >= 0 {
		text = text[start+len("```"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}
	text = strings.TrimSpace(text)

	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first >= 0 && last > first {
		return text[first : last+1]
	}
	return text
}
