package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// contentGenerator is the subset of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini calls the Gemini API through the genai SDK.
type Gemini struct {
	models contentGenerator
	model  string
}

// NewGemini creates a Gemini client. An empty apiKey falls back to the
// GEMINI_API_KEY / GOOGLE_API_KEY environment handled by the SDK.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}
	return newGemini(client.Models, model), nil
}

func newGemini(models contentGenerator, model string) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{models: models, model: model}
}

// Generate sends a text-only prompt and asks for a JSON response.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, []*genai.Part{{Text: prompt}}, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
}

// GenerateWithBlob sends a prompt together with inline binary data, such as
// an audio recording.
func (g *Gemini) GenerateWithBlob(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	return g.generate(ctx, []*genai.Part{
		{Text: prompt},
		{
			InlineData: &genai.Blob{
				MIMEType: mimeType,
				Data:     data,
			},
		},
	}, nil)
}

func (g *Gemini) generate(ctx context.Context, parts []*genai.Part, config *genai.GenerateContentConfig) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: parts,
		},
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}

	return resp.Text(), nil
}
