package capability

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Constraints bound the style of a generated reply.
type Constraints struct {
	// MaxSentences caps the reply length; the prompt asks the model to
	// honor it and MaxChars enforces a hard cutoff.
	MaxSentences int
	MaxChars     int
}

func DefaultConstraints() Constraints {
	return Constraints{MaxSentences: 1, MaxChars: 600}
}

// GenerativeBackend is one model provider in the fallback chain.
type GenerativeBackend interface {
	Name() string
	Complete(ctx context.Context, prompt string, c Constraints) (string, *Failure)
}

// StreamingBackend is implemented by backends that can deliver the
// reply incrementally. onChunk is called in generation order; the
// returned string is the full aggregate.
type StreamingBackend interface {
	CompleteStream(ctx context.Context, prompt string, c Constraints, onChunk func(chunk string)) (string, *Failure)
}

// GenerativeService is what the dispatcher sees: a single capability
// regardless of how many backends sit behind it.
type GenerativeService interface {
	Complete(ctx context.Context, prompt string, c Constraints) (string, *Failure)
	CompleteStream(ctx context.Context, prompt string, c Constraints, onChunk func(chunk string)) (string, *Failure)
}

// FallbackChain tries backends in order. On a transient failure
// (RateLimited, Unreachable) it moves to the next backend; each
// backend is invoked at most once per call, and the last Failure is
// surfaced verbatim so callers can still distinguish its kind.
// Non-transient failures stop the chain immediately.
type FallbackChain struct {
	backends []GenerativeBackend
	logger   *zap.Logger
}

func NewFallbackChain(logger *zap.Logger, backends ...GenerativeBackend) *FallbackChain {
	return &FallbackChain{backends: backends, logger: logger}
}

func (c *FallbackChain) Complete(ctx context.Context, prompt string, constraints Constraints) (string, *Failure) {
	return c.run(ctx, prompt, constraints, nil)
}

func (c *FallbackChain) CompleteStream(ctx context.Context, prompt string, constraints Constraints, onChunk func(string)) (string, *Failure) {
	return c.run(ctx, prompt, constraints, onChunk)
}

func (c *FallbackChain) run(ctx context.Context, prompt string, constraints Constraints, onChunk func(string)) (string, *Failure) {
	if len(c.backends) == 0 {
		return "", MissingCredential("no generative backend configured")
	}

	var last *Failure
	for _, b := range c.backends {
		emit := onChunk
		var capper *chunkCap
		if onChunk != nil {
			capper = &chunkCap{max: constraints.MaxChars, emit: onChunk}
			emit = capper.send
		}
		text, fail := invokeBackend(ctx, b, prompt, constraints, emit)
		if fail == nil {
			if capper != nil {
				// The stream close must report exactly what the chunks
				// spelled out, so the aggregate is the capped emission,
				// not an independently clamped copy.
				return capper.sent.String(), nil
			}
			return clampReply(text, constraints), nil
		}
		c.logger.Warn("generative backend failed",
			zap.String("backend", b.Name()),
			zap.String("kind", string(fail.Kind)),
			zap.Error(fail))
		if !fail.Transient() {
			return "", fail
		}
		last = fail
	}
	return "", last
}

// invokeBackend prefers the streaming path when the caller wants
// chunks and the backend supports them; otherwise the full reply is
// fetched and delivered as a single chunk.
func invokeBackend(ctx context.Context, b GenerativeBackend, prompt string, c Constraints, onChunk func(string)) (string, *Failure) {
	if onChunk == nil {
		return b.Complete(ctx, prompt, c)
	}
	if sb, ok := b.(StreamingBackend); ok {
		return sb.CompleteStream(ctx, prompt, c, onChunk)
	}
	text, fail := b.Complete(ctx, prompt, c)
	if fail != nil {
		return "", fail
	}
	onChunk(text)
	return text, nil
}

// chunkCap enforces MaxChars across a stream of chunks. The chunk that
// crosses the cap is cut on a rune boundary and everything after it is
// dropped, so the client never hears more than the aggregate carries.
type chunkCap struct {
	max  int // 0 disables the cap
	sent strings.Builder
	emit func(string)
}

func (c *chunkCap) send(chunk string) {
	if c.max > 0 {
		remaining := c.max - c.sent.Len()
		if remaining <= 0 {
			return
		}
		if len(chunk) > remaining {
			chunk = truncateOnRuneBoundary(chunk, remaining)
		}
	}
	if chunk == "" {
		return
	}
	c.sent.WriteString(chunk)
	c.emit(chunk)
}

func clampReply(text string, c Constraints) string {
	text = strings.TrimSpace(text)
	if c.MaxChars > 0 && len(text) > c.MaxChars {
		text = strings.TrimSpace(truncateOnRuneBoundary(text, c.MaxChars))
	}
	return text
}

// truncateOnRuneBoundary cuts s to at most n bytes without splitting a
// multi-byte rune.
func truncateOnRuneBoundary(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// stylePrompt turns the constraints into a short spoken-style
// instruction for the model.
func stylePrompt(c Constraints) string {
	if c.MaxSentences == 1 {
		return "Reply in 1 sentence."
	}
	return "Reply briefly, in plain spoken language."
}
