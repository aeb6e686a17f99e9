package capability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWikipedia(t *testing.T, handler http.HandlerFunc) *WikipediaService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWikipediaService(srv.URL, 5*time.Second, nil, zap.NewNop())
}

func TestWikipedia_Summary(t *testing.T) {
	svc := newWikipedia(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/rest_v1/page/summary/Go", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"type":"standard","extract":"Go is a programming language. It was designed at Google."}`))
	})

	summary, fail := svc.Summarize(context.Background(), "Go")
	require.Nil(t, fail)
	assert.Equal(t, "Go is a programming language.", summary)
}

func TestWikipedia_NoMatch(t *testing.T) {
	svc := newWikipedia(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, fail := svc.Summarize(context.Background(), "xyzzy nonsense")
	require.NotNil(t, fail)
	assert.Equal(t, FailUnrecognized, fail.Kind)
}

func TestWikipedia_Disambiguation(t *testing.T) {
	svc := newWikipedia(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"disambiguation","extract":"Mercury may refer to:"}`))
	})

	_, fail := svc.Summarize(context.Background(), "mercury")
	require.NotNil(t, fail)
	assert.Equal(t, FailUnrecognized, fail.Kind, "many matches are a failure, not a guess")
}

func TestWikipedia_RateLimited(t *testing.T) {
	svc := newWikipedia(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, fail := svc.Summarize(context.Background(), "go")
	require.NotNil(t, fail)
	assert.Equal(t, FailRateLimited, fail.Kind)
	assert.Equal(t, 30*time.Second, fail.RetryAfter)
}

func TestWikipedia_ServerError(t *testing.T) {
	svc := newWikipedia(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, fail := svc.Summarize(context.Background(), "go")
	require.NotNil(t, fail)
	assert.Equal(t, FailUnreachable, fail.Kind)
}

func TestWikipedia_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on
	svc := NewWikipediaService(srv.URL, time.Second, nil, zap.NewNop())

	_, fail := svc.Summarize(context.Background(), "go")
	require.NotNil(t, fail)
	assert.Equal(t, FailUnreachable, fail.Kind)
}

func TestWikipedia_EmptyTerm(t *testing.T) {
	svc := newWikipedia(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an empty term")
	})

	_, fail := svc.Summarize(context.Background(), "   ")
	require.NotNil(t, fail)
	assert.Equal(t, FailUnrecognized, fail.Kind)
}
