package capability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiBackend generates replies with the Gemini API. It is normally
// the first link in the fallback chain.
type GeminiBackend struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiBackend(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiBackend{client: client, model: model, timeout: timeout}, nil
}

func (b *GeminiBackend) Name() string { return "gemini/" + b.model }

func (b *GeminiBackend) Complete(ctx context.Context, prompt string, c Constraints) (string, *Failure) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	res, err := b.client.Models.GenerateContent(ctx, b.model, contents, b.config(c))
	if err != nil {
		return "", classifyGenAIError(err)
	}

	text := res.Text()
	if strings.TrimSpace(text) == "" {
		return "", Unrecognized("model returned empty text", nil)
	}
	return text, nil
}

func (b *GeminiBackend) CompleteStream(ctx context.Context, prompt string, c Constraints, onChunk func(string)) (string, *Failure) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	var full strings.Builder
	for res, err := range b.client.Models.GenerateContentStream(ctx, b.model, contents, b.config(c)) {
		if err != nil {
			// A failure after chunks were already delivered cannot be
			// retried elsewhere without duplicating speech, so it is
			// surfaced as non-transient.
			if full.Len() > 0 {
				return "", Unrecognized("stream interrupted", err)
			}
			return "", classifyGenAIError(err)
		}
		chunk := res.Text()
		if chunk == "" {
			continue
		}
		full.WriteString(chunk)
		onChunk(chunk)
	}

	if strings.TrimSpace(full.String()) == "" {
		return "", Unrecognized("model returned empty text", nil)
	}
	return full.String(), nil
}

func (b *GeminiBackend) config(c Constraints) *genai.GenerateContentConfig {
	maxTokens := int32(512)
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(stylePrompt(c), genai.RoleUser),
		MaxOutputTokens:   maxTokens,
	}
}

func classifyGenAIError(err error) *Failure {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return RateLimited(0, err)
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return MissingCredential("gemini credential was rejected")
		default:
			return Unreachable(err)
		}
	}
	return Unreachable(err)
}
