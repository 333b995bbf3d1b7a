package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

const apiBase = "https://api.github.com"
const apiVersion = "2022-11-28"
const maxRetries = 3
const defaultFallbackSleep = 60 * time.Second
const rateLimitResetBuffer = 5 * time.Second

// PageSize is the per_page value used on every paginated endpoint.
const PageSize = 100

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *zap.Logger

	// mu guards the rate-limit state: one client is shared between the
	// request handlers and the snapshot worker.
	mu                 sync.Mutex
	rateLimitRemaining int
	rateLimitReset     time.Time
}

func NewClient(token string, logger *zap.Logger) *Client {
	return &Client{
		httpClient:         &http.Client{},
		baseURL:            apiBase,
		token:              token,
		logger:             logger,
		rateLimitRemaining: -1,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a local server.
func NewClientWithBaseURL(baseURL, token string, logger *zap.Logger) *Client {
	c := NewClient(token, logger)
	c.baseURL = baseURL
	return c
}

func (c *Client) updateRateLimit(resp *http.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := resp.Header.Get("X-RateLimit-Remaining"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			c.rateLimitRemaining = n
		}
	}
	if s := resp.Header.Get("X-RateLimit-Reset"); s != "" {
		if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
			c.rateLimitReset = time.Unix(unix, 0)
		}
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
}

// sleepSecondaryRateLimit handles a 429 response by sleeping for the duration
// specified in the Retry-After header. Falls back to defaultFallbackSleep if
// the header is absent or unparseable. Always drains and closes the body.
func sleepSecondaryRateLimit(resp *http.Response) time.Duration {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
			d := time.Duration(secs) * time.Second
			time.Sleep(d)
			return d
		}
	}
	time.Sleep(defaultFallbackSleep)
	return defaultFallbackSleep
}

// sleepPrimaryRateLimit handles a 403+X-RateLimit-Remaining=0 response by
// sleeping until the reset time from X-RateLimit-Reset (plus a small buffer).
// Falls back to defaultFallbackSleep if the header is absent or unparseable.
// Always drains and closes the body.
func sleepPrimaryRateLimit(resp *http.Response) time.Duration {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if s := resp.Header.Get("X-RateLimit-Reset"); s != "" {
		if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
			if d := time.Until(time.Unix(unix, 0)) + rateLimitResetBuffer; d > 0 {
				time.Sleep(d)
				return d
			}
		}
	}
	time.Sleep(defaultFallbackSleep)
	return defaultFallbackSleep
}

// get fetches url into out and returns the rel="next" URL from the Link
// response header, or the empty string on the last page.
func (c *Client) get(ctx context.Context, url string, out any) (string, error) {
	c.mu.Lock()
	remaining, reset := c.rateLimitRemaining, c.rateLimitReset
	c.mu.Unlock()
	if remaining == 0 {
		if d := time.Until(reset) + rateLimitResetBuffer; d > 0 {
			c.logger.Info("preemptively waiting for github rate limit reset",
				zap.Duration("wait", d),
				zap.Time("resetAt", reset),
			)
			time.Sleep(d)
		}
	}

	for attempt := range maxRetries {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", err
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", err
		}

		switch resp.StatusCode {
		case http.StatusOK:
			c.updateRateLimit(resp)
			defer resp.Body.Close()
			next := NextPageURL(resp.Header.Get("Link"))
			return next, json.NewDecoder(resp.Body).Decode(out)

		case http.StatusTooManyRequests: // 429 secondary rate limit
			retriesRemaining := maxRetries - attempt - 1
			waited := sleepSecondaryRateLimit(resp)
			c.logger.Warn("github secondary rate limit hit",
				zap.String("url", url),
				zap.Duration("waited", waited),
				zap.Int("retriesRemaining", retriesRemaining),
			)
			if retriesRemaining == 0 {
				return "", fmt.Errorf("secondary rate limited on %s after %d retries", url, maxRetries)
			}

		case http.StatusForbidden:
			if resp.Header.Get("X-RateLimit-Remaining") != "0" {
				// Not a rate limit (auth error, permissions, etc.) — fail immediately.
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
			}
			// Primary rate limit exhausted.
			retriesRemaining := maxRetries - attempt - 1
			waited := sleepPrimaryRateLimit(resp)
			c.logger.Warn("github primary rate limit hit",
				zap.String("url", url),
				zap.Duration("waited", waited),
				zap.Int("retriesRemaining", retriesRemaining),
			)
			if retriesRemaining == 0 {
				return "", fmt.Errorf("primary rate limited on %s after %d retries", url, maxRetries)
			}

		default:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
		}
	}
	return "", fmt.Errorf("get %s: exceeded max retries", url)
}

// FirstSeatsPageURL builds the first Copilot billing seats page URL for an
// enterprise or an organization. Exactly one of the two must be non-empty.
func (c *Client) FirstSeatsPageURL(enterprise, organization string) string {
	if enterprise != "" {
		return fmt.Sprintf("%s/enterprises/%s/copilot/billing/seats?per_page=%d",
			c.baseURL, enterprise, PageSize)
	}
	return fmt.Sprintf("%s/orgs/%s/copilot/billing/seats?per_page=%d",
		c.baseURL, organization, PageSize)
}

// GetSeatsPage fetches one page of Copilot seats and returns the page body
// plus the URL of the next page, if any.
func (c *Client) GetSeatsPage(ctx context.Context, pageURL string) (*SeatsResponse, string, error) {
	var resp SeatsResponse
	next, err := c.get(ctx, pageURL, &resp)
	if err != nil {
		return nil, "", fmt.Errorf("getting copilot seats page: %w", err)
	}
	return &resp, next, nil
}

// FirstTeamMembersPageURL builds the first members page URL for a team slug
// within an organization.
func (c *Client) FirstTeamMembersPageURL(organization, team string) string {
	return fmt.Sprintf("%s/orgs/%s/teams/%s/members?per_page=%d",
		c.baseURL, organization, url.PathEscape(team), PageSize)
}

// GetTeamMembersPage fetches one page of team members plus the next page URL.
func (c *Client) GetTeamMembersPage(ctx context.Context, pageURL string) ([]Member, string, error) {
	var members []Member
	next, err := c.get(ctx, pageURL, &members)
	if err != nil {
		return nil, "", fmt.Errorf("getting team members page: %w", err)
	}
	return members, next, nil
}

// FirstTeamsPageURL builds the first page URL of the organization team listing.
func (c *Client) FirstTeamsPageURL(organization string) string {
	return fmt.Sprintf("%s/orgs/%s/teams?per_page=%d", c.baseURL, organization, PageSize)
}

// GetTeamsPage fetches one page of organization teams plus the next page URL.
func (c *Client) GetTeamsPage(ctx context.Context, pageURL string) ([]Team, string, error) {
	var teams []Team
	next, err := c.get(ctx, pageURL, &teams)
	if err != nil {
		return nil, "", fmt.Errorf("getting teams page: %w", err)
	}
	return teams, next, nil
}
