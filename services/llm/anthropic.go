package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/invopop/jsonschema"
	log "github.com/sirupsen/logrus"
)

const replyToolName = "submit_reply"

// AnthropicClient returns structured replies by forcing a single tool call
// whose input schema is reflected from ChatRequest.Shape.
type AnthropicClient struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

func NewAnthropicClient(apiKey, model string, opts ...option.RequestOption) *AnthropicClient {
	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)

	return &AnthropicClient{
		client:    &client,
		model:     anthropic.Model(model),
		maxTokens: 4096,
	}
}

func (c *AnthropicClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt))},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Shape != nil {
		params.Tools = []anthropic.ToolUnionParam{{
			OfTool: &anthropic.ToolParam{
				Name:        replyToolName,
				Description: anthropic.String("Submit the reply in the requested structure"),
				InputSchema: generateAnthropicSchema(req.Shape),
			},
		}}
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: replyToolName},
		}
	}

	response, err := c.client.Messages.New(ctx, params)
	if err != nil {
		log.Errorf("Failed to call Anthropic API: %v", err)
		upstream := &UpstreamError{Provider: "Anthropic", Body: err.Error(), Err: err}
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			upstream.Status = apiErr.StatusCode
		}
		return "", upstream
	}

	text := ""
	for _, block := range response.Content {
		switch block := block.AsAny().(type) {
		case anthropic.ToolUseBlock:
			input, err := json.Marshal(block.Input)
			if err != nil {
				return "", fmt.Errorf("failed to read tool input: %w", err)
			}
			return string(input), nil
		case anthropic.TextBlock:
			text += block.Text
		}
	}
	return text, nil
}

func generateAnthropicSchema(shape any) anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(shape)

	return anthropic.ToolInputSchemaParam{
		Properties: schema.Properties,
	}
}
