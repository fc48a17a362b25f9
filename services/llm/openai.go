package llm

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// OpenAIClient talks to any OpenAI-compatible chat endpoint (OpenRouter by
// default).
type OpenAIClient struct {
	llm llms.Model
}

func NewOpenAIClient(apiKey, baseURL, model string) (*OpenAIClient, error) {
	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	return &OpenAIClient{llm: llm}, nil
}

// NewOpenAIClientFromModel wraps an existing langchaingo model.
func NewOpenAIClientFromModel(model llms.Model) *OpenAIClient {
	return &OpenAIClient{llm: model}
}

func (c *OpenAIClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman, req.Prompt))

	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.JSON {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := c.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		log.Errorf("Chat completion failed: %v", err)
		return "", &UpstreamError{Provider: "OpenRouter", Status: statusFromError(err), Body: err.Error(), Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Provider: "OpenRouter", Body: "response contained no choices"}
	}

	return resp.Choices[0].Content, nil
}
