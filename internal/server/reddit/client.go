// Package reddit is a minimal client for the provider endpoints the scheduler
// uses: the OAuth token endpoint, the identity endpoint and /api/submit.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/redditscheduler/internal/common"
	"github.com/dmitrijs2005/redditscheduler/internal/server/config"
	"github.com/dmitrijs2005/redditscheduler/internal/server/metrics"
	"golang.org/x/time/rate"
)

// maxErrorBody caps how much of a failed response is kept in the error text.
const maxErrorBody = 2048

// ErrNoRefreshToken is returned by ExchangeCode when the provider grants
// only a temporary token.
var ErrNoRefreshToken = fmt.Errorf("%w: no refresh token received", common.ErrorUpstream)

// Token is the subset of the token endpoint response the scheduler needs.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

// Submission describes one post. URL is sent for link posts, Text for self
// posts; Kind decides which.
type Submission struct {
	Subreddit string
	Title     string
	Kind      string
	URL       string
	Text      string
}

// SubmitResult is what the provider reports back for a created post.
type SubmitResult struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// APIError is returned when the provider answers with a non-success status
// or a body reporting a failure. It matches common.ErrorUpstream.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Body)
}

func (e *APIError) Unwrap() error { return common.ErrorUpstream }

type Client struct {
	authBaseURL  string
	apiBaseURL   string
	clientID     string
	clientSecret string
	redirectURI  string
	userAgent    string
	httpClient   *http.Client
	limiter      *rate.Limiter
}

// NewClient builds a client from the provider settings in cfg. A single
// limiter is shared by every call made through the client.
func NewClient(cfg *config.Config) *Client {
	rps := rate.Limit(cfg.ProviderRPS)
	if cfg.ProviderRPS <= 0 {
		rps = rate.Inf
	}
	burst := cfg.ProviderBurst
	if burst < 1 {
		burst = 1
	}
	return &Client{
		authBaseURL:  strings.TrimRight(cfg.RedditAuthBaseURL, "/"),
		apiBaseURL:   strings.TrimRight(cfg.RedditAPIBaseURL, "/"),
		clientID:     cfg.RedditClientID,
		clientSecret: cfg.RedditClientSecret,
		redirectURI:  cfg.RedditRedirectURI,
		userAgent:    cfg.UserAgent,
		httpClient:   &http.Client{Timeout: cfg.HTTPClientTimeout},
		limiter:      rate.NewLimiter(rps, burst),
	}
}

// AuthorizeURL returns the provider consent page URL for the given state.
func (c *Client) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("response_type", "code")
	q.Set("state", state)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("duration", "permanent")
	q.Set("scope", "submit,identity")
	return c.authBaseURL + "/api/v1/authorize?" + q.Encode()
}

// ExchangeCode trades an authorization code for a token pair. A response
// without a refresh token is an error: the scheduler cannot work without one.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURI)

	tok, err := c.requestToken(ctx, "token exchange failed", form)
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("token exchange failed: %w", ErrNoRefreshToken)
	}
	return tok, nil
}

// RefreshAccessToken returns a fresh access token for a stored refresh token.
// A rotated refresh token in the response is ignored.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	tok, err := c.requestToken(ctx, "token refresh failed", form)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (c *Client) requestToken(ctx context.Context, op string, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authBaseURL+"/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok Token
	if err := c.do(req, "access_token", op, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, &APIError{Op: op, StatusCode: http.StatusOK, Body: "no access token received"}
	}
	return &tok, nil
}

// Me returns the username the access token belongs to.
func (c *Client) Me(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/api/v1/me", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var me struct {
		Name string `json:"name"`
	}
	if err := c.do(req, "me", "failed to get user info", &me); err != nil {
		return "", err
	}
	if me.Name == "" {
		return "", &APIError{Op: "failed to get user info", StatusCode: http.StatusOK, Body: "empty username"}
	}
	return me.Name, nil
}

// Submit creates a post. Exactly one of url (link) or text (self, only when
// non-empty) is sent.
func (c *Client) Submit(ctx context.Context, accessToken string, s Submission) (*SubmitResult, error) {
	form := url.Values{}
	form.Set("sr", s.Subreddit)
	form.Set("title", s.Title)
	form.Set("kind", s.Kind)
	form.Set("api_type", "json")
	switch s.Kind {
	case common.KindLink:
		form.Set("url", s.URL)
	default:
		if s.Text != "" {
			form.Set("text", s.Text)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBaseURL+"/api/submit", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out struct {
		JSON struct {
			Errors [][]any       `json:"errors"`
			Data   *SubmitResult `json:"data"`
		} `json:"json"`
	}
	if err := c.do(req, "submit", "reddit api error", &out); err != nil {
		return nil, err
	}
	if len(out.JSON.Errors) > 0 {
		return nil, &APIError{Op: "reddit api error", StatusCode: http.StatusOK, Body: formatAPIErrors(out.JSON.Errors)}
	}
	if out.JSON.Data == nil {
		return &SubmitResult{}, nil
	}
	return out.JSON.Data, nil
}

// do waits for the limiter, sends req and decodes a 2xx JSON body into out.
func (c *Client) do(req *http.Request, endpoint, op string, out any) error {
	ctx := req.Context()
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveProviderRequest(endpoint, 0)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	metrics.ObserveProviderRequest(endpoint, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		text := strings.TrimSpace(string(body))
		if text == "" {
			text = resp.Status
		}
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: text}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: "malformed response: " + err.Error()}
	}
	return nil
}

func formatAPIErrors(errs [][]any) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		fields := make([]string, 0, len(e))
		for _, f := range e {
			if f != nil {
				fields = append(fields, fmt.Sprint(f))
			}
		}
		parts = append(parts, strings.Join(fields, ": "))
	}
	return strings.Join(parts, "; ")
}
