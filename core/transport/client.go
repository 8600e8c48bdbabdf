package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

const loginPath = "/rest/user/login"

// Client is a cookie-session Transport for a YouTrack server. When Token is
// set it is sent as a bearer token and no login is performed.
type Client struct {
	BaseURL  string
	Username string
	Password string
	Token    string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	login   singleflight.Group
	mu      sync.RWMutex
	cookies []*http.Cookie
}

var _ Transport = (*Client)(nil)

func NewClient(baseURL, username, password string) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Username: username,
		Password: password,
	}
}

// Login opens a session and keeps its cookies for subsequent requests.
// Concurrent callers share one login round trip.
func (c *Client) Login(ctx context.Context) error {
	_, err, _ := c.login.Do("login", func() (any, error) {
		form := url.Values{}
		form.Set("login", c.Username)
		form.Set("password", c.Password)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+loginPath, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, fmt.Errorf("failed to create login request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		slog.Debug("Logging in", "url", c.BaseURL, "user", c.Username)
		resp, err := c.httpClient().Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to log in: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return nil, responseError(http.MethodPost, loginPath, resp)
		}

		c.mu.Lock()
		c.cookies = resp.Cookies()
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, header http.Header, body []byte, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, header, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, header http.Header, body []byte, out any) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}

	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	c.mu.RLock()
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	c.mu.RUnlock()

	slog.Debug("Sending request", "method", method, "url", u)
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("failed to %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(method, path, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response of %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) ensureSession(ctx context.Context) error {
	if c.Token != "" || c.Username == "" {
		return nil
	}
	c.mu.RLock()
	ok := c.cookies != nil
	c.mu.RUnlock()
	if ok {
		return nil
	}
	return c.Login(ctx)
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// errorBody covers both the legacy {"value": ...} and the OAuth-style
// {"error": ..., "error_description": ...} error shapes.
type errorBody struct {
	Value       string `json:"value"`
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

func responseError(method, path string, resp *http.Response) *Error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	e := &Error{
		Method: method,
		Path:   path,
		Status: resp.StatusCode,
		Body:   string(b),
	}
	var eb errorBody
	if json.Unmarshal(b, &eb) == nil {
		e.Code = eb.Error
		switch {
		case eb.Description != "":
			e.Message = eb.Description
		case eb.Value != "":
			e.Message = eb.Value
		}
	}
	return e
}
