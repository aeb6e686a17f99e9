// Package capability wraps each external collaborator (knowledge
// lookup, mail, generative completion) behind a uniform
// success-or-Failure contract so the dispatcher can pattern-match on a
// closed set of failure kinds instead of inspecting error strings.
package capability

import (
	"fmt"
	"time"
)

// FailureKind categorizes adapter failures.
type FailureKind string

const (
	FailMissingCredential FailureKind = "missing_credential"
	FailRateLimited       FailureKind = "rate_limited"
	FailUnreachable       FailureKind = "unreachable"
	FailUnrecognized      FailureKind = "unrecognized"
)

// Failure is the only error type adapters surface. It is never raised
// past the adapter boundary as a panic; call sites return it as a
// value and callers branch on Kind.
type Failure struct {
	Kind    FailureKind
	Message string

	// RetryAfter is a backoff hint for FailRateLimited; zero when the
	// remote service gave none.
	RetryAfter time.Duration

	Cause error
}

func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Cause
}

func MissingCredential(message string) *Failure {
	return &Failure{Kind: FailMissingCredential, Message: message}
}

func RateLimited(retryAfter time.Duration, cause error) *Failure {
	return &Failure{Kind: FailRateLimited, Message: "rate limited by remote service", RetryAfter: retryAfter, Cause: cause}
}

func Unreachable(cause error) *Failure {
	return &Failure{Kind: FailUnreachable, Message: "remote service unreachable", Cause: cause}
}

func Unrecognized(message string, cause error) *Failure {
	return &Failure{Kind: FailUnrecognized, Message: message, Cause: cause}
}

// Transient reports whether the failure is worth retrying against an
// alternate backend.
func (f *Failure) Transient() bool {
	return f.Kind == FailRateLimited || f.Kind == FailUnreachable
}
