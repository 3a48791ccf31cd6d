// Package api talks to the welfare association's REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/welfare/internal/auth"
	"github.com/dukerupert/welfare/internal/model"
	"github.com/dukerupert/welfare/internal/requestid"
)

// maxErrorBody caps how much of a failed response is kept on StatusError.
const maxErrorBody = 4 << 10

// StatusError is returned for any non-2xx response. The client does not
// interpret status codes; callers decide what a failure means.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
}

// Client is bound to one console session: its cookie jar holds the backend's
// session cookies and its token source yields that session's bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. Its transport is still
// wrapped with bearer injection, and a cookie jar is added if it has none.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cp := *c
		cl.httpClient = &cp
	}
}

// New returns a client for <backendURL>/api.
func New(backendURL string, tokens auth.TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(backendURL, "/") + "/api",
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient.Jar == nil {
		// cookiejar.New only fails on a bad PublicSuffixList option.
		jar, _ := cookiejar.New(nil)
		c.httpClient.Jar = jar
	}
	next := c.httpClient.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	c.httpClient.Transport = &bearerTransport{tokens: tokens, next: next}
	return c
}

// bearerTransport sets Authorization and X-Request-ID on every outgoing request.
type bearerTransport struct {
	tokens auth.TokenSource
	next   http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	token := ""
	if t.tokens != nil {
		token = t.tokens.Token(ctx)
	}
	id := requestid.From(ctx)
	if token == "" && id == "" {
		return t.next.RoundTrip(req)
	}

	req = req.Clone(ctx)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id != "" {
		req.Header.Set(requestid.Header, id)
	}
	return t.next.RoundTrip(req)
}

func (c *Client) do(ctx context.Context, method, path string, in any, out any, header http.Header) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(b)}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// ListMembers returns all members in the order the backend sends them.
func (c *Client) ListMembers(ctx context.Context) ([]model.Member, error) {
	var members []model.Member
	if err := c.do(ctx, http.MethodGet, "/members", nil, &members, nil); err != nil {
		return nil, err
	}
	if members == nil {
		members = []model.Member{}
	}
	return members, nil
}

// DeleteMember deletes the member with the given backend id. Any 2xx is success.
func (c *Client) DeleteMember(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/members/"+escapeID(id), nil, nil, nil)
}

// UpdateMember saves the full member record. The backend's response body is
// not relied upon; the submitted record is returned on success.
func (c *Client) UpdateMember(ctx context.Context, m model.Member) (model.Member, error) {
	if m.ID == "" {
		return model.Member{}, fmt.Errorf("update member: missing id")
	}
	if err := c.do(ctx, http.MethodPut, "/members/"+escapeID(m.ID), m, nil, nil); err != nil {
		return model.Member{}, err
	}
	return m, nil
}

// CreateRefund posts one refund request. Each call carries a fresh
// Idempotency-Key.
func (c *Client) CreateRefund(ctx context.Context, r model.RefundRequest) error {
	h := http.Header{}
	h.Set("Idempotency-Key", uuid.NewString())
	return c.do(ctx, http.MethodPost, "/refunds", r, nil, h)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the backend's answer to a successful sign in.
type LoginResult struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var res LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &res, nil); err != nil {
		return LoginResult{}, err
	}
	if res.Token == "" {
		return LoginResult{}, fmt.Errorf("login: backend returned no token")
	}
	return res, nil
}

func escapeID(id string) string {
	return url.PathEscape(id)
}
