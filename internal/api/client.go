package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/pders01/linkboard/internal/config"
	"github.com/pders01/linkboard/internal/debuglog"
	"github.com/pders01/linkboard/internal/stories"
)

const maxErrorBody = 64 << 10

// Client talks to the story API over HTTP/JSON.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

var _ stories.Gateway = (*Client)(nil)

// NewClient creates a client for cfg.API.BaseURL. A zero HTTPTimeout leaves
// requests bounded only by their context.
func NewClient(cfg *config.Config) (*Client, error) {
	base := strings.TrimRight(cfg.API.BaseURL, "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing API base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("API base URL must use http or https: %q", cfg.API.BaseURL)
	}

	return &Client{
		baseURL:   base,
		userAgent: cfg.API.UserAgent,
		client: &http.Client{
			Timeout: cfg.API.HTTPTimeout,
		},
	}, nil
}

type call struct {
	method     string
	segments   []string
	query      url.Values
	body       any
	out        any
	credential bool
}

func (c *Client) endpoint(segments []string, query url.Values) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u := c.baseURL + "/" + strings.Join(escaped, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, cl call) error {
	op := cl.method + " /" + strings.Join(cl.segments, "/")

	var body io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.endpoint(cl.segments, cl.query), body)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := debuglog.WithFields(map[string]interface{}{
		"op":         op,
		"request_id": requestID,
	})

	resp, err := c.client.Do(req)
	if err != nil {
		log.Debugf("request failed: %v", err)
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	log.Debugf("response status %d", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = json.Unmarshal(raw, &eb)
		return classify(op, resp.StatusCode, cl.credential, eb.message(resp.StatusCode))
	}

	if cl.out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return &NetworkError{Op: op, Err: err}
		}
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

type tokenBody struct {
	Token string `json:"token"`
}

type createStoryBody struct {
	Token string           `json:"token"`
	Story stories.NewStory `json:"story"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type credentialsBody struct {
	User credentials `json:"user"`
}

type storiesResponse struct {
	Stories []stories.Record `json:"stories"`
}

type storyResponse struct {
	Story stories.Record `json:"story"`
}

type userResponse struct {
	User  stories.UserRecord `json:"user"`
	Token string             `json:"token"`
}

// ListStories fetches every story in server order.
func (c *Client) ListStories(ctx context.Context) ([]stories.Record, error) {
	var out storiesResponse
	err := c.do(ctx, call{method: http.MethodGet, segments: []string{"stories"}, out: &out})
	if err != nil {
		return nil, err
	}
	return out.Stories, nil
}

// CreateStory submits draft and returns the stored record.
func (c *Client) CreateStory(ctx context.Context, token string, draft stories.NewStory) (stories.Record, error) {
	var out storyResponse
	err := c.do(ctx, call{
		method:   http.MethodPost,
		segments: []string{"stories"},
		body:     createStoryBody{Token: token, Story: draft},
		out:      &out,
	})
	return out.Story, err
}

// DeleteStory removes storyID; the server only allows its poster to do so.
func (c *Client) DeleteStory(ctx context.Context, token, storyID string) error {
	return c.do(ctx, call{
		method:   http.MethodDelete,
		segments: []string{"stories", storyID},
		body:     tokenBody{Token: token},
	})
}

// Signup creates an account and returns it with a fresh token.
func (c *Client) Signup(ctx context.Context, username, password, name string) (stories.UserRecord, string, error) {
	return c.authenticate(ctx, "signup", credentials{Username: username, Password: password, Name: name})
}

// Login exchanges a username and password for a token.
func (c *Client) Login(ctx context.Context, username, password string) (stories.UserRecord, string, error) {
	return c.authenticate(ctx, "login", credentials{Username: username, Password: password})
}

func (c *Client) authenticate(ctx context.Context, endpoint string, creds credentials) (stories.UserRecord, string, error) {
	var out userResponse
	err := c.do(ctx, call{
		method:     http.MethodPost,
		segments:   []string{endpoint},
		body:       credentialsBody{User: creds},
		out:        &out,
		credential: true,
	})
	if err != nil {
		return stories.UserRecord{}, "", err
	}
	if out.Token == "" {
		return stories.UserRecord{}, "", &AuthError{
			Op:         http.MethodPost + " /" + endpoint,
			StatusCode: http.StatusOK,
			Message:    "response carried no token",
		}
	}
	return out.User, out.Token, nil
}

// GetUser fetches a profile; the token travels as a query parameter.
func (c *Client) GetUser(ctx context.Context, token, username string) (stories.UserRecord, error) {
	var out userResponse
	err := c.do(ctx, call{
		method:   http.MethodGet,
		segments: []string{"users", username},
		query:    url.Values{"token": []string{token}},
		out:      &out,
	})
	return out.User, err
}

// AddFavorite adds storyID to the favorites of username.
func (c *Client) AddFavorite(ctx context.Context, token, username, storyID string) error {
	return c.do(ctx, call{
		method:   http.MethodPost,
		segments: []string{"users", username, "favorites", storyID},
		body:     tokenBody{Token: token},
	})
}

// RemoveFavorite removes storyID from the favorites of username.
func (c *Client) RemoveFavorite(ctx context.Context, token, username, storyID string) error {
	return c.do(ctx, call{
		method:   http.MethodDelete,
		segments: []string{"users", username, "favorites", storyID},
		body:     tokenBody{Token: token},
	})
}
