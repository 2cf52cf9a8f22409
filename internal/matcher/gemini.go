package matcher

import (
	"context"
	"net/http"

	"google.golang.org/genai"

	"supplymatch/internal"
)

type GeminiCompleter struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiCompleter builds a completer on the Gemini API backend. baseURL is
// only set in tests.
func NewGeminiCompleter(ctx context.Context, apiKey, model, baseURL string, temperature float64) (*GeminiCompleter, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
		cc.HTTPClient = http.DefaultClient
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, &internal.MatcherError{Provider: "gemini", Err: err}
	}
	return &GeminiCompleter{client: client, model: model, temperature: float32(temperature)}, nil
}

func (c *GeminiCompleter) Name() string { return "gemini" }

func (c *GeminiCompleter) Complete(ctx context.Context, req Request) (string, error) {
	temperature := c.temperature
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		MaxOutputTokens:   int32(req.MaxTokens),
		Temperature:       &temperature,
	})
	if err != nil {
		return "", &internal.MatcherError{Provider: c.Name(), Err: err}
	}
	return resp.Text(), nil
}
