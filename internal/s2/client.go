package s2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Semantic Scholar Academic Graph API base URL.
	BaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRate is one request per second, the budget for keyed clients.
	DefaultRate = 1.0

	// PaperFields are the fields requested for every paper.
	PaperFields = "paperId,externalIds,title,abstract,authors,year,venue"

	// DefaultReferencesLimit caps the references fetched per paper.
	DefaultReferencesLimit = 100

	pageSize = 100
)

// Client is a rate-limited client for the Graph API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key sent as x-api-key.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithRateLimit sets the sustained request rate per second.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewClient creates a client. S2_API_KEY is picked up from the environment.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRate), 1),
		baseURL:    BaseURL,
	}
	if key := os.Getenv("S2_API_KEY"); key != "" {
		c.apiKey = key
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetPaper fetches a single paper.
func (c *Client) GetPaper(ctx context.Context, id PaperIdentifier) (*Paper, error) {
	q := url.Values{"fields": {PaperFields}}
	var p Paper
	if err := c.get(ctx, "/paper/"+id.String(), q, &p); err != nil {
		return nil, annotate(err, id.String())
	}
	if p.PaperID == "" {
		return nil, ErrNotFound
	}
	return &p, nil
}

// GetReferences fetches up to limit papers cited by id, following pages.
// Entries S2 could not resolve to a paper id are skipped.
func (c *Client) GetReferences(ctx context.Context, id PaperIdentifier, limit int) ([]Paper, error) {
	if limit <= 0 {
		limit = DefaultReferencesLimit
	}

	var refs []Paper
	offset := 0
	for len(refs) < limit {
		n := min(pageSize, limit-len(refs))
		q := url.Values{
			"fields": {PaperFields},
			"offset": {strconv.Itoa(offset)},
			"limit":  {strconv.Itoa(n)},
		}
		var page referencesPage
		if err := c.get(ctx, "/paper/"+id.String()+"/references", q, &page); err != nil {
			return nil, annotate(err, id.String())
		}
		for _, entry := range page.Data {
			if entry.CitedPaper == nil || entry.CitedPaper.PaperID == "" {
				continue
			}
			refs = append(refs, *entry.CitedPaper)
			if len(refs) == limit {
				break
			}
		}
		if page.Next <= offset || len(page.Data) == 0 {
			break
		}
		offset = page.Next
	}
	return refs, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", ErrNetworkError, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func checkHTTPErrors(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuthError, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 400:
		return &APIError{StatusCode: resp.StatusCode}
	}
	return nil
}

func annotate(err error, paperID string) error {
	if apiErr, ok := err.(*APIError); ok {
		apiErr.PaperID = paperID
		return apiErr
	}
	return fmt.Errorf("%s: %w", paperID, err)
}
