package llm

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultOpenAIModel is used when no model name is configured.
const DefaultOpenAIModel = openai.ChatModelGPT5Nano

const openAISystemPrompt = "You convert short spoken shop commands into a single JSON object. Output only JSON."

// chatCompleter is the subset of openai.ChatCompletionService used here.
type chatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI calls the chat completions API.
type OpenAI struct {
	completions chatCompleter
	model       string
}

// NewOpenAI creates a client authenticated with apiKey.
func NewOpenAI(apiKey, model string) *OpenAI {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return newOpenAI(&client.Chat.Completions, model)
}

func newOpenAI(completions chatCompleter, model string) *OpenAI {
	if model == "" {
		model = string(DefaultOpenAIModel)
	}
	return &OpenAI{completions: completions, model: model}
}

func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(openAISystemPrompt),
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(o.model),
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
