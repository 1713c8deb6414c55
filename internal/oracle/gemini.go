package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	genai "google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// retryBackoff is the pause before the single transient-failure retry.
const retryBackoff = 2 * time.Second

// Gemini is an oracle adapter backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	budget Budget
}

// NewGemini constructs a Gemini oracle adapter.
func NewGemini(ctx context.Context, apiKey, model string, budget Budget) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("missing gemini api key")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Gemini{client: client, model: model, budget: budget}, nil
}

// Classify sends one window to Gemini and parses the verdict. Transport
// failures retry once after a short backoff; a second failure surfaces as
// ErrUnavailable.
func (g *Gemini) Classify(ctx context.Context, req Request) (Verdict, error) {
	prompt := BuildPrompt(g.budget.Apply(req))

	text, err := g.generate(ctx, prompt)
	if err != nil {
		select {
		case <-ctx.Done():
			return Verdict{}, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
		case <-time.After(retryBackoff):
		}

		text, err = g.generate(ctx, prompt)
		if err != nil {
			return Verdict{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}

	return ParseVerdict(text)
}

func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	res, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}, nil)
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}
