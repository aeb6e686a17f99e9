// Package dispatch routes one classified utterance to its handler and
// builds the terminal response envelope. It is the single place where
// adapter failures become user-facing text; nothing below it leaks raw
// backend errors to the client.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Mriidul2508/Bosom/internal/capability"
	"github.com/Mriidul2508/Bosom/internal/intent"
	"github.com/Mriidul2508/Bosom/internal/models"
)

// Fixed user-facing strings, one per failure kind. Tests pin these.
const (
	MsgMissingCredential = "I can't do that yet because access isn't configured on the server."
	MsgRateLimited       = "I'm being rate limited right now. Please wait a moment and try again."
	MsgUnreachable       = "Sorry, I'm having trouble reaching that service right now."
	MsgUnrecognized      = "I couldn't find a clear answer for that. Could you be more specific?"

	MsgFarewell = "Goodbye! Talk to you soon."
)

// Notifier receives advisory progress events during a dispatch. None
// of them affect control flow.
type Notifier interface {
	StatusUpdate(message string)
	UserSpeech(message string)
	StreamChunk(chunk string)
}

// Result is the outcome of one dispatch. Streamed is true when the
// reply already went out as ordered chunks, in which case the channel
// must terminate with stream_end instead of final_response.
type Result struct {
	Envelope models.ResponseEnvelope
	Streamed bool
}

type Dispatcher struct {
	knowledge  capability.KnowledgeService
	mail       capability.MailService
	generative capability.GenerativeService

	streamReplies bool
	now           func() time.Time
	logger        *zap.Logger
}

func New(knowledge capability.KnowledgeService, mail capability.MailService, generative capability.GenerativeService, streamReplies bool, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		knowledge:     knowledge,
		mail:          mail,
		generative:    generative,
		streamReplies: streamReplies,
		now:           time.Now,
		logger:        logger,
	}
}

// WithClock overrides the time source.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Dispatch handles one utterance end to end. The second return is
// false only for the silent noise filter: empty or whitespace-only
// input produces no events and no envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notifier, utt models.Utterance) (Result, bool) {
	text := strings.TrimSpace(utt.Text)
	if text == "" {
		return Result{}, false
	}

	in := intent.Classify(text)
	d.logger.Info("utterance classified",
		zap.String("intent", in.Kind.String()),
		zap.String("text", text))

	n.UserSpeech("You: " + text)
	n.StatusUpdate(processingLabel(in.Kind))

	switch in.Kind {
	case intent.KindQuit:
		return Result{Envelope: models.ResponseEnvelope{
			Message:                 MsgFarewell,
			ShouldContinueListening: false,
		}}, true

	case intent.KindOpenResource:
		return Result{Envelope: models.ResponseEnvelope{
			Message:                 fmt.Sprintf("Opening %s for you.", in.Resource),
			Redirect:                in.URL,
			ShouldContinueListening: false,
		}}, true

	case intent.KindQueryTime:
		return Result{Envelope: models.ResponseEnvelope{
			Message:                 "The time is " + d.now().Format("03:04 PM"),
			ShouldContinueListening: true,
		}}, true

	case intent.KindKnowledgeLookup:
		summary, fail := d.knowledge.Summarize(ctx, in.Term)
		return Result{Envelope: d.envelope(summary, fail)}, true

	case intent.KindMailCheck:
		reply, fail := d.mail.Invoke(ctx, capability.MailRequest{Mode: capability.MailCheck})
		return Result{Envelope: d.envelope(reply, fail)}, true

	case intent.KindMailSend:
		reply, fail := d.mail.Invoke(ctx, capability.MailRequest{
			Mode:    capability.MailSend,
			To:      in.To,
			Subject: in.Subject,
			Body:    in.Body,
		})
		return Result{Envelope: d.envelope(reply, fail)}, true

	default:
		return d.converse(ctx, n, in.Text), true
	}
}

// converse is the generative fallback. With streaming enabled the
// chunks go out through the notifier and the envelope carries the
// aggregate for stream_end.
func (d *Dispatcher) converse(ctx context.Context, n Notifier, text string) Result {
	constraints := capability.DefaultConstraints()

	if d.streamReplies {
		streamed := false
		reply, fail := d.generative.CompleteStream(ctx, text, constraints, func(chunk string) {
			streamed = true
			n.StreamChunk(chunk)
		})
		if fail == nil {
			return Result{Envelope: d.envelope(reply, nil), Streamed: streamed}
		}
		// Streamed stays true if any chunk already went out, so the
		// channel still closes the exchange with stream_end.
		return Result{Envelope: d.envelope("", fail), Streamed: streamed}
	}

	reply, fail := d.generative.Complete(ctx, text, constraints)
	return Result{Envelope: d.envelope(reply, fail)}
}

// envelope converts an adapter outcome into the terminal envelope.
// Failures keep the session listening; only Quit and OpenResource stop
// it.
func (d *Dispatcher) envelope(reply string, fail *capability.Failure) models.ResponseEnvelope {
	if fail == nil {
		return models.ResponseEnvelope{
			Message:                 reply,
			ShouldContinueListening: true,
		}
	}
	d.logger.Warn("adapter failure", zap.String("kind", string(fail.Kind)), zap.Error(fail))
	return models.ResponseEnvelope{
		Message:                 FailureMessage(fail),
		ShouldContinueListening: true,
		IsRateLimited:           fail.Kind == capability.FailRateLimited,
	}
}

// FailureMessage maps a failure kind to its fixed user-facing string.
func FailureMessage(fail *capability.Failure) string {
	switch fail.Kind {
	case capability.FailMissingCredential:
		return MsgMissingCredential
	case capability.FailRateLimited:
		return MsgRateLimited
	case capability.FailUnrecognized:
		return MsgUnrecognized
	default:
		return MsgUnreachable
	}
}

func processingLabel(k intent.Kind) string {
	switch k {
	case intent.KindKnowledgeLookup:
		return "Searching Wikipedia..."
	case intent.KindMailCheck:
		return "Checking your inbox..."
	case intent.KindMailSend:
		return "Sending your email..."
	default:
		return "Thinking..."
	}
}
