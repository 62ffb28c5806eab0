package vectorize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/skinlens/backend/internal/domain"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Vectorize API root
	DefaultBaseURL = "https://api.vectorize.io/v1"

	// DefaultNumResults is how many passages are requested per ingredient
	DefaultNumResults = 3

	maxErrorBodyBytes = 4 << 10
	maxBodyBytes      = 4 << 20
)

// Config holds the retrieval pipeline identifiers and client tuning
type Config struct {
	APIKey            string
	OrganizationID    string
	PipelineID        string
	BaseURL           string
	NumResults        int
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client queries a Vectorize retrieval pipeline for ingredient passages
type Client struct {
	httpClient  *http.Client
	apiKey      string
	endpoint    string
	numResults  int
	rateLimiter *rate.Limiter
	debug       bool
}

type retrievalRequest struct {
	Question   string `json:"question"`
	NumResults int    `json:"numResults"`
}

type retrievalResponse struct {
	Documents []document `json:"documents"`
}

type document struct {
	ID         string  `json:"id,omitempty"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity,omitempty"`
}

// NewClient creates a new retrieval client
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	numResults := cfg.NumResults
	if numResults < 1 {
		numResults = DefaultNumResults
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Unlimited when no rate is configured
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey: cfg.APIKey,
		endpoint: fmt.Sprintf("%s/org/%s/pipelines/%s/retrieval",
			strings.TrimRight(baseURL, "/"), url.PathEscape(cfg.OrganizationID), url.PathEscape(cfg.PipelineID)),
		numResults:  numResults,
		rateLimiter: rate.NewLimiter(limit, 1),
	}
}

// SetDebug enables logging of request and response payloads
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

func (c *Client) debugLog(msg string, fields map[string]interface{}) {
	if !c.debug {
		return
	}
	log.Debug().Fields(fields).Msg(msg)
}

// Question renders the retrieval question for an ingredient
func Question(ingredient string) string {
	return fmt.Sprintf("What are the properties, uses, and safety information of %s?", ingredient)
}

// Retrieve returns up to NumResults passage texts in the order the pipeline ranked them
func (c *Client) Retrieve(ctx context.Context, ingredient string) ([]string, error) {
	start := time.Now()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrRetrieval, err)
	}

	payload, err := json.Marshal(retrievalRequest{
		Question:   Question(ingredient),
		NumResults: c.numResults,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", domain.ErrRetrieval, err)
	}
	c.debugLog("vectorize request", map[string]interface{}{"endpoint": c.endpoint, "body": string(payload)})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", domain.ErrRetrieval, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "SkinLens/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRetrieval, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := readLimitedBody(resp.Body, maxErrorBodyBytes)
		log.Warn().
			Str("ingredient", ingredient).
			Int("status", resp.StatusCode).
			Msg("vectorize retrieval returned error status")
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrRetrieval, resp.StatusCode, string(body))
	}

	body, err := readLimitedBody(resp.Body, maxBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrRetrieval, err)
	}
	c.debugLog("vectorize response", map[string]interface{}{"status": resp.StatusCode, "body": string(body)})

	var parsed retrievalResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrRetrieval, err)
	}

	passages := make([]string, 0, len(parsed.Documents))
	for _, doc := range parsed.Documents {
		if len(passages) == c.numResults {
			break
		}
		passages = append(passages, doc.Text)
	}

	log.Debug().
		Str("ingredient", ingredient).
		Int("passages", len(passages)).
		Dur("duration", time.Since(start)).
		Msg("retrieved passages")

	return passages, nil
}

// readLimitedBody reads at most limit bytes from r
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}
