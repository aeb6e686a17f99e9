package capability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMail_MissingCredentialSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	t.Cleanup(srv.Close)

	creds := NewStaticCredentialStore("")
	mail := NewGatewayMailService(srv.URL, time.Second, creds, zap.NewNop())

	_, fail := mail.Invoke(context.Background(), MailRequest{Mode: MailSend, To: "bob@example.com"})
	require.NotNil(t, fail)
	assert.Equal(t, FailMissingCredential, fail.Kind)
	assert.Equal(t, int32(0), calls.Load(), "no network call without a credential")
}

func TestMail_CheckUnread(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/unread", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"count":    2,
			"subjects": []string{"Lunch plans", "Weekly report"},
		})
	}))
	t.Cleanup(srv.Close)

	mail := NewGatewayMailService(srv.URL, time.Second, NewStaticCredentialStore("tok-123"), zap.NewNop())
	msg, fail := mail.Invoke(context.Background(), MailRequest{Mode: MailCheck})
	require.Nil(t, fail)
	assert.Equal(t, "You have 2 unread emails. The latest is about: Lunch plans", msg)
}

func TestMail_CheckEmptyInbox(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"count": 0})
	}))
	t.Cleanup(srv.Close)

	mail := NewGatewayMailService(srv.URL, time.Second, NewStaticCredentialStore("tok"), zap.NewNop())
	msg, fail := mail.Invoke(context.Background(), MailRequest{Mode: MailCheck})
	require.Nil(t, fail)
	assert.Equal(t, "You have no unread emails.", msg)
}

func TestMail_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/send", r.URL.Path)
		var req sendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "bob@example.com", req.To)
		assert.Equal(t, "(no subject)", req.Subject)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	mail := NewGatewayMailService(srv.URL, time.Second, NewStaticCredentialStore("tok"), zap.NewNop())
	msg, fail := mail.Invoke(context.Background(), MailRequest{Mode: MailSend, To: "bob@example.com", Body: "hi"})
	require.Nil(t, fail)
	assert.Equal(t, "Email sent to bob@example.com.", msg)
}

func TestMail_SendWithoutRecipient(t *testing.T) {
	mail := NewGatewayMailService("http://unused", time.Second, NewStaticCredentialStore("tok"), zap.NewNop())
	_, fail := mail.Invoke(context.Background(), MailRequest{Mode: MailSend})
	require.NotNil(t, fail)
	assert.Equal(t, FailUnrecognized, fail.Kind)
}

func TestMail_RejectedCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	mail := NewGatewayMailService(srv.URL, time.Second, NewStaticCredentialStore("stale"), zap.NewNop())
	_, fail := mail.Invoke(context.Background(), MailRequest{Mode: MailCheck})
	require.NotNil(t, fail)
	assert.Equal(t, FailMissingCredential, fail.Kind)
}

func TestMail_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "10")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	mail := NewGatewayMailService(srv.URL, time.Second, NewStaticCredentialStore("tok"), zap.NewNop())
	_, fail := mail.Invoke(context.Background(), MailRequest{Mode: MailCheck})
	require.NotNil(t, fail)
	assert.Equal(t, FailRateLimited, fail.Kind)
	assert.Equal(t, 10*time.Second, fail.RetryAfter)
}

func TestCredentialStore_Exchange(t *testing.T) {
	store := NewExchangingCredentialStore(func(ctx context.Context, code string) (string, error) {
		return "token-for-" + code, nil
	})

	_, ok := store.ValidCredential(context.Background())
	assert.False(t, ok)

	require.NoError(t, store.ExchangeCode(context.Background(), "abc"))
	token, ok := store.ValidCredential(context.Background())
	require.True(t, ok)
	assert.Equal(t, "token-for-abc", token)
}

func TestCredentialStore_ExchangeNotConfigured(t *testing.T) {
	store := NewStaticCredentialStore("tok")
	assert.Error(t, store.ExchangeCode(context.Background(), "abc"))
}
