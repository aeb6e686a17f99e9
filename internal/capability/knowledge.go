package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Mriidul2508/Bosom/internal/knowcache"
)

// KnowledgeService resolves a search term to a short-text summary.
type KnowledgeService interface {
	Summarize(ctx context.Context, term string) (string, *Failure)
}

// WikipediaService implements KnowledgeService against the Wikipedia
// REST summary endpoint, with an optional Redis cache in front.
type WikipediaService struct {
	baseURL    string
	httpClient *http.Client
	cache      *knowcache.Cache
	logger     *zap.Logger
}

func NewWikipediaService(baseURL string, timeout time.Duration, cache *knowcache.Cache, logger *zap.Logger) *WikipediaService {
	return &WikipediaService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		logger:     logger,
	}
}

// pageSummary is the subset of the REST response we care about. A
// "disambiguation" type means the term matched many pages.
type pageSummary struct {
	Type    string `json:"type"`
	Extract string `json:"extract"`
}

func (s *WikipediaService) Summarize(ctx context.Context, term string) (string, *Failure) {
	term = strings.TrimSpace(term)
	if term == "" {
		return "", Unrecognized("empty search term", nil)
	}

	if summary, ok := s.cache.Get(ctx, term); ok {
		return summary, nil
	}

	endpoint := fmt.Sprintf("%s/api/rest_v1/page/summary/%s", s.baseURL, url.PathEscape(term))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", Unreachable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", Unreachable(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", Unrecognized("no page found for term", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", RateLimited(retryAfterHint(resp), nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", Unreachable(fmt.Errorf("knowledge service returned %d: %s", resp.StatusCode, string(body)))
	}

	var page pageSummary
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return "", Unreachable(fmt.Errorf("failed to decode summary: %w", err))
	}

	// Disambiguation pages mean the term matched many articles; per
	// policy we fail rather than guess one.
	if page.Type == "disambiguation" {
		return "", Unrecognized("term is ambiguous", nil)
	}
	if strings.TrimSpace(page.Extract) == "" {
		return "", Unrecognized("page has no summary", nil)
	}

	summary := firstSentence(page.Extract)
	s.cache.Put(ctx, term, summary)
	return summary, nil
}

// retryAfterHint parses a Retry-After header given in seconds.
func retryAfterHint(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// firstSentence trims an extract down to its opening sentence, the
// same shape the voice client reads aloud.
func firstSentence(extract string) string {
	extract = strings.TrimSpace(extract)
	if idx := strings.Index(extract, ". "); idx >= 0 {
		return extract[:idx+1]
	}
	return extract
}
