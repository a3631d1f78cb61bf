package trendsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"digest-orchestrator/internal/domain"
	"digest-orchestrator/internal/infra/httpclient"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultCacheSize = 4096
	defaultCacheTTL  = 6 * time.Hour
)

type interestRequest struct {
	Keywords []string `json:"keywords"`
}

type interestResponse struct {
	Scores map[string]float64 `json:"scores"`
}

// PopularityClient fetches 0-100 interest scores for keywords from the
// external trends service. Scores move slowly, so responses are cached per
// keyword with a TTL to keep detection runs from hammering the provider.
type PopularityClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	cache   *expirable.LRU[string, float64]
}

func NewPopularityClient(baseURL, apiKey string, timeout time.Duration) *PopularityClient {
	return &PopularityClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  httpclient.NewPooledClient(timeout),
		cache:   expirable.NewLRU[string, float64](defaultCacheSize, nil, defaultCacheTTL),
	}
}

func (c *PopularityClient) Scores(ctx context.Context, keywords []string) (map[string]float64, error) {
	scores := make(map[string]float64, len(keywords))

	var missing []string
	for _, kw := range keywords {
		if score, ok := c.cache.Get(kw); ok {
			scores[kw] = score
		} else {
			missing = append(missing, kw)
		}
	}
	if len(missing) == 0 {
		return scores, nil
	}

	fetched, err := c.fetch(ctx, missing)
	if err != nil {
		// Cached portion is still useful; the caller zero-fills the rest.
		if len(scores) > 0 {
			return scores, nil
		}
		return nil, err
	}
	for kw, score := range fetched {
		c.cache.Add(kw, score)
		scores[kw] = score
	}
	return scores, nil
}

func (c *PopularityClient) fetch(ctx context.Context, keywords []string) (map[string]float64, error) {
	jsonPayload, err := json.Marshal(interestRequest{Keywords: keywords})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal interest request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/interest", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create interest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call trends endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("trends endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var interest interestResponse
	if err := json.NewDecoder(resp.Body).Decode(&interest); err != nil {
		return nil, fmt.Errorf("failed to decode interest response: %w", err)
	}
	return interest.Scores, nil
}

var _ domain.PopularityProvider = (*PopularityClient)(nil)
