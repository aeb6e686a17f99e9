package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CredentialStore holds the mail credential. The OAuth exchange and
// token persistence live in a collaborator behind this interface; the
// adapter only cares whether a valid credential exists right now.
type CredentialStore interface {
	ValidCredential(ctx context.Context) (token string, ok bool)
	ExchangeCode(ctx context.Context, code string) error
}

// StaticCredentialStore carries a token handed in at startup (or later
// via ExchangeCode when an exchange function is configured).
type StaticCredentialStore struct {
	mu       sync.RWMutex
	token    string
	exchange func(ctx context.Context, code string) (string, error)
}

func NewStaticCredentialStore(token string) *StaticCredentialStore {
	return &StaticCredentialStore{token: token}
}

// NewExchangingCredentialStore wires a code-for-token exchange
// function, typically backed by the OAuth collaborator.
func NewExchangingCredentialStore(exchange func(ctx context.Context, code string) (string, error)) *StaticCredentialStore {
	return &StaticCredentialStore{exchange: exchange}
}

func (s *StaticCredentialStore) ValidCredential(ctx context.Context) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *StaticCredentialStore) ExchangeCode(ctx context.Context, code string) error {
	s.mu.RLock()
	exchange := s.exchange
	s.mu.RUnlock()
	if exchange == nil {
		return fmt.Errorf("credential exchange is not configured")
	}
	token, err := exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// MailMode selects the mail operation.
type MailMode string

const (
	MailCheck MailMode = "check"
	MailSend  MailMode = "send"
)

type MailRequest struct {
	Mode    MailMode
	To      string
	Subject string
	Body    string
}

// MailService performs one mail operation and returns the text to
// speak back to the user.
type MailService interface {
	Invoke(ctx context.Context, req MailRequest) (string, *Failure)
}

// GatewayMailService talks to a mail gateway over HTTP JSON. The
// credential precondition is checked before any network call.
type GatewayMailService struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialStore
	logger     *zap.Logger
}

func NewGatewayMailService(baseURL string, timeout time.Duration, creds CredentialStore, logger *zap.Logger) *GatewayMailService {
	return &GatewayMailService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		creds:      creds,
		logger:     logger,
	}
}

type unreadResponse struct {
	Count    int      `json:"count"`
	Subjects []string `json:"subjects"`
}

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (s *GatewayMailService) Invoke(ctx context.Context, req MailRequest) (string, *Failure) {
	token, ok := s.creds.ValidCredential(ctx)
	if !ok {
		return "", MissingCredential("no mail credential stored")
	}

	switch req.Mode {
	case MailCheck:
		return s.checkUnread(ctx, token)
	case MailSend:
		return s.send(ctx, token, req)
	}
	return "", Unrecognized(fmt.Sprintf("unknown mail mode %q", req.Mode), nil)
}

func (s *GatewayMailService) checkUnread(ctx context.Context, token string) (string, *Failure) {
	body, fail := s.do(ctx, token, http.MethodGet, "/unread", nil)
	if fail != nil {
		return "", fail
	}

	var unread unreadResponse
	if err := json.Unmarshal(body, &unread); err != nil {
		return "", Unreachable(fmt.Errorf("failed to decode unread response: %w", err))
	}

	if unread.Count == 0 {
		return "You have no unread emails.", nil
	}
	msg := fmt.Sprintf("You have %d unread emails.", unread.Count)
	if unread.Count == 1 {
		msg = "You have 1 unread email."
	}
	if len(unread.Subjects) > 0 {
		msg += " The latest is about: " + unread.Subjects[0]
	}
	return msg, nil
}

func (s *GatewayMailService) send(ctx context.Context, token string, req MailRequest) (string, *Failure) {
	if req.To == "" {
		return "", Unrecognized("no recipient given", nil)
	}
	subject := req.Subject
	if subject == "" {
		subject = "(no subject)"
	}

	payload, err := json.Marshal(sendRequest{To: req.To, Subject: subject, Body: req.Body})
	if err != nil {
		return "", Unreachable(fmt.Errorf("failed to marshal send request: %w", err))
	}

	if _, fail := s.do(ctx, token, http.MethodPost, "/send", payload); fail != nil {
		return "", fail
	}
	return fmt.Sprintf("Email sent to %s.", req.To), nil
}

func (s *GatewayMailService) do(ctx context.Context, token, method, path string, payload []byte) ([]byte, *Failure) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return nil, Unreachable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, Unreachable(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Unreachable(fmt.Errorf("failed to read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, MissingCredential("mail credential was rejected")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, RateLimited(retryAfterHint(resp), nil)
	case resp.StatusCode >= 400:
		return nil, Unreachable(fmt.Errorf("mail gateway returned %d: %s", resp.StatusCode, string(body)))
	}
	return body, nil
}
