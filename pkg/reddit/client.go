// Package reddit is a minimal client for the Reddit search and OAuth token APIs.
package reddit

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

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL   = "https://oauth.reddit.com"
	defaultAuthURL   = "https://www.reddit.com/api/v1/access_token"
	defaultUserAgent = "lead-radar/1.0"
	siteURL          = "https://www.reddit.com"
)

// Client performs subreddit searches and token grants.
type Client interface {
	Search(ctx context.Context, token, subreddit, query string, limit int) ([]Post, error)
	ClientCredentials(ctx context.Context) (*Token, error)
	Refresh(ctx context.Context, refreshToken string) (*Token, error)
}

// Post is one search hit.
type Post struct {
	ID          string
	Title       string
	SelfText    string
	Subreddit   string
	Author      string
	Score       int
	NumComments int
	CreatedAt   time.Time
	Permalink   string // absolute URL
	URL         string // external link, or the permalink for self posts
	IsSelf      bool
}

// Token is an OAuth grant result.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("reddit: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the OAuth API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithAuthURL overrides the token endpoint.
func WithAuthURL(u string) Option {
	return func(c *httpClient) { c.authURL = u }
}

// WithUserAgent sets the User-Agent header Reddit requires.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithClock overrides the clock used to compute token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *httpClient) { c.now = now }
}

type httpClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	authURL      string
	userAgent    string
	http         *http.Client
	now          func() time.Time
}

// NewClient creates a Reddit API client for an installed or script app.
func NewClient(clientID, clientSecret string, opts ...Option) Client {
	c := &httpClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      defaultBaseURL,
		authURL:      defaultAuthURL,
		userAgent:    defaultUserAgent,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		now: time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type listing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID          string  `json:"id"`
				Title       string  `json:"title"`
				SelfText    string  `json:"selftext"`
				Subreddit   string  `json:"subreddit"`
				Author      string  `json:"author"`
				Score       int     `json:"score"`
				NumComments int     `json:"num_comments"`
				CreatedUTC  float64 `json:"created_utc"`
				Permalink   string  `json:"permalink"`
				URL         string  `json:"url"`
				IsSelf      bool    `json:"is_self"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (c *httpClient) Search(ctx context.Context, token, subreddit, query string, limit int) ([]Post, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("restrict_sr", "1")
	q.Set("sort", "new")
	q.Set("t", "month")
	q.Set("raw_json", "1")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	endpoint := fmt.Sprintf("%s/r/%s/search?%s", c.baseURL, url.PathEscape(subreddit), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "reddit: create search request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var l listing
	if err := c.do(req, &l); err != nil {
		return nil, eris.Wrapf(err, "reddit: search r/%s", subreddit)
	}

	posts := make([]Post, 0, len(l.Data.Children))
	for _, ch := range l.Data.Children {
		d := ch.Data
		permalink := d.Permalink
		if strings.HasPrefix(permalink, "/") {
			permalink = siteURL + permalink
		}
		link := d.URL
		if d.IsSelf || link == "" {
			link = permalink
		}
		posts = append(posts, Post{
			ID:          d.ID,
			Title:       d.Title,
			SelfText:    d.SelfText,
			Subreddit:   d.Subreddit,
			Author:      d.Author,
			Score:       d.Score,
			NumComments: d.NumComments,
			CreatedAt:   time.Unix(int64(d.CreatedUTC), 0).UTC(),
			Permalink:   permalink,
			URL:         link,
			IsSelf:      d.IsSelf,
		})
	}
	return posts, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Error        string `json:"error"`
}

func (c *httpClient) ClientCredentials(ctx context.Context) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	tok, err := c.grant(ctx, form)
	return tok, eris.Wrap(err, "reddit: client credentials")
}

func (c *httpClient) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	tok, err := c.grant(ctx, form)
	if err != nil {
		return nil, eris.Wrap(err, "reddit: refresh token")
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

func (c *httpClient) grant(ctx context.Context, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "create token request")
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tr tokenResponse
	if err := c.do(req, &tr); err != nil {
		return nil, err
	}
	if tr.Error != "" {
		return nil, eris.Errorf("token grant rejected: %s", tr.Error)
	}
	if tr.AccessToken == "" {
		return nil, eris.New("token grant returned no access token")
	}
	return &Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    c.now().Add(time.Duration(tr.ExpiresIn) * time.Second).UTC(),
	}, nil
}

func (c *httpClient) do(req *http.Request, out any) error {
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return eris.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
