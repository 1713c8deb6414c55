package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4.1-mini"
	defaultOpenAITimeout = 60 * time.Second
)

// OpenAI is an oracle adapter for OpenAI-compatible chat-completion
// endpoints, which covers most self-hosted inference gateways.
type OpenAI struct {
	hc     *http.Client
	url    string
	apiKey string
	model  string
	budget Budget
}

// OpenAIOptions configures the OpenAI-compatible adapter.
type OpenAIOptions struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// NewOpenAI constructs an adapter for an OpenAI-compatible endpoint.
func NewOpenAI(opts OpenAIOptions, budget Budget) (*OpenAI, error) {
	if opts.APIKey == "" {
		return nil, errors.New("missing openai api key")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultOpenAIBaseURL
	}
	if opts.Model == "" {
		opts.Model = defaultOpenAIModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultOpenAITimeout
	}

	return &OpenAI{
		hc:     &http.Client{Timeout: opts.Timeout},
		url:    strings.TrimRight(opts.BaseURL, "/") + "/chat/completions",
		apiKey: opts.APIKey,
		model:  opts.Model,
		budget: budget,
	}, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Classify sends one window to the chat-completions endpoint and parses the
// verdict. Transport failures retry once after a short backoff.
func (o *OpenAI) Classify(ctx context.Context, req Request) (Verdict, error) {
	prompt := BuildPrompt(o.budget.Apply(req))

	text, err := o.complete(ctx, prompt)
	if err != nil {
		select {
		case <-ctx.Done():
			return Verdict{}, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
		case <-time.After(retryBackoff):
		}

		text, err = o.complete(ctx, prompt)
		if err != nil {
			return Verdict{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}

	return ParseVerdict(text)
}

func (o *OpenAI) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.hc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("post chat completion: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion status %d: %s", resp.StatusCode, bytes.TrimSpace(payload))
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("empty choices in response")
	}

	return parsed.Choices[0].Message.Content, nil
}
