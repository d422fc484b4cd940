package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/mikeboe/research-flow/pkg/research"
)

// GenAI talks to Gemini through the google genai SDK and asks for a JSON
// response body directly.
type GenAI struct {
	client *genai.Client
	model  string
}

func NewGenAI(ctx context.Context, apiKey string, model ModelType) (*GenAI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, research.ErrMissingCredential("GOOGLE_API_KEY")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAI{client: client, model: string(model)}, nil
}

func (g *GenAI) Complete(ctx context.Context, systemInstruction, prompt string) (string, error) {
	temperature := float32(0)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		ResponseMIMEType:  "application/json",
		Temperature:       &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("genai generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("genai returned no candidates")
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}
