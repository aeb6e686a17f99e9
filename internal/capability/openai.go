package capability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIBackend is the secondary link in the fallback chain.
type OpenAIBackend struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIBackend(apiKey, model string, timeout time.Duration) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is empty")
	}
	return &OpenAIBackend{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}, nil
}

func (b *OpenAIBackend) Name() string { return "openai/" + b.model }

func (b *OpenAIBackend) request(prompt string, c Constraints) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: stylePrompt(c)},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
}

func (b *OpenAIBackend) Complete(ctx context.Context, prompt string, c Constraints) (string, *Failure) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	resp, err := b.client.CreateChatCompletion(ctx, b.request(prompt, c))
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", Unrecognized("model returned empty text", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

func (b *OpenAIBackend) CompleteStream(ctx context.Context, prompt string, c Constraints, onChunk func(string)) (string, *Failure) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	req := b.request(prompt, c)
	req.Stream = true
	stream, err := b.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	defer stream.Close()

	var full strings.Builder
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			if full.Len() > 0 {
				return "", Unrecognized("stream interrupted", err)
			}
			return "", classifyOpenAIError(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		chunk := resp.Choices[0].Delta.Content
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

func classifyOpenAIError(err error) *Failure {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return RateLimited(0, err)
		case apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden:
			return MissingCredential("openai credential was rejected")
		default:
			return Unreachable(err)
		}
	}
	return Unreachable(err)
}
