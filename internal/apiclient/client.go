package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"school-tables/internal/auth"
	"school-tables/internal/model"
	"school-tables/pkg/apierror"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 10 << 20
	snippetLength  = 200
)

// ErrNotJSON is returned when the backend answers with anything but JSON.
var ErrNotJSON = errors.New("backend did not return JSON")

// Client talks to the list backend. It implements datatable.Transport.
type Client struct {
	baseURL string
	http    *http.Client
	session *auth.Session

	mu           sync.Mutex
	refreshToken string
}

// New returns a client for baseURL. session receives the tokens from Login and Refresh and
// supplies the bearer token for every request; it may be shared with permission-gated tables.
func New(baseURL string, timeout time.Duration, session *auth.Session) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if session == nil {
		session = auth.NewSession("", nil)
	}

	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
		session: session,
	}
}

func (c *Client) Session() *auth.Session {
	return c.session
}

// Get fetches endpoint with params and returns the raw JSON body. An expired access token is
// refreshed once when a refresh token is held.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	body, err := c.do(ctx, http.MethodGet, endpoint, params, nil)
	if err == nil || !isUnauthorized(err) || !c.hasRefreshToken() {
		return body, err
	}

	slog.Debug("access token rejected, refreshing", "endpoint", endpoint)
	if _, refreshErr := c.Refresh(ctx); refreshErr != nil {
		return nil, err
	}

	return c.do(ctx, http.MethodGet, endpoint, params, nil)
}

// Login exchanges credentials for tokens and loads the signed-in user into the session.
func (c *Client) Login(ctx context.Context, username string, password string) (model.TokenPair, error) {
	var tokens model.TokenPair
	payload := model.LoginRequest{Username: username, Password: password}
	if err := c.call(ctx, http.MethodPost, "/api/v1/auth/login", payload, &tokens); err != nil {
		return model.TokenPair{}, fmt.Errorf("login: %w", err)
	}

	c.adopt(tokens)
	return tokens, nil
}

// Refresh rotates the held refresh token.
func (c *Client) Refresh(ctx context.Context) (model.TokenPair, error) {
	c.mu.Lock()
	refresh := c.refreshToken
	c.mu.Unlock()

	if refresh == "" {
		return model.TokenPair{}, apierror.New("UNAUTHORIZED", "no refresh token", "", http.StatusUnauthorized)
	}

	var tokens model.TokenPair
	if err := c.call(ctx, http.MethodPost, "/api/v1/auth/refresh", model.RefreshRequest{RefreshToken: refresh}, &tokens); err != nil {
		c.mu.Lock()
		c.refreshToken = ""
		c.mu.Unlock()
		return model.TokenPair{}, fmt.Errorf("refresh: %w", err)
	}

	c.adopt(tokens)
	return tokens, nil
}

// UseToken signs later requests with an existing access token and loads its user.
func (c *Client) UseToken(ctx context.Context, accessToken string) (*auth.User, error) {
	c.session.Update(accessToken, nil)

	user, err := c.Me(ctx)
	if err != nil {
		c.session.Clear()
		return nil, err
	}
	return user, nil
}

// Me returns the signed-in user and stores it in the session.
func (c *Client) Me(ctx context.Context) (*auth.User, error) {
	var user model.AuthUser
	if err := c.call(ctx, http.MethodGet, "/api/v1/auth/me", nil, &user); err != nil {
		return nil, fmt.Errorf("me: %w", err)
	}

	u := toUser(user)
	c.session.Update(c.session.Token(), u)
	return u, nil
}

// Resources lists the resources the signed-in user may read.
func (c *Client) Resources(ctx context.Context) ([]string, error) {
	var out struct {
		Resources []string `json:"resources"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/resources", nil, &out); err != nil {
		return nil, fmt.Errorf("resources: %w", err)
	}
	return out.Resources, nil
}

// Logout revokes the held refresh token and clears the session.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	refresh := c.refreshToken
	c.refreshToken = ""
	c.mu.Unlock()

	defer c.session.Clear()
	if refresh == "" {
		return nil
	}
	return c.call(ctx, http.MethodPost, "/api/v1/auth/logout", model.RefreshRequest{RefreshToken: refresh}, nil)
}

func (c *Client) adopt(tokens model.TokenPair) {
	c.mu.Lock()
	c.refreshToken = tokens.RefreshToken
	c.mu.Unlock()

	c.session.Update(tokens.AccessToken, toUser(tokens.User))
}

func (c *Client) hasRefreshToken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshToken != ""
}

// call sends payload as JSON and decodes the data member of a successful envelope into out.
func (c *Client) call(ctx context.Context, method string, endpoint string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	raw, err := c.do(ctx, method, endpoint, nil, body)
	if err != nil {
		return err
	}

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *model.APIError `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !envelope.Success {
		return envelopeError(http.StatusOK, envelope.Error)
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method string, endpoint string, params url.Values, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(endpoint, params), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if !isJSON(resp.Header.Get("Content-Type")) {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, apierror.New(apierror.CodeForStatus(resp.StatusCode), http.StatusText(resp.StatusCode), snippet(raw), resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s", ErrNotJSON, snippet(raw))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope struct {
			Error *model.APIError `json:"error"`
		}
		_ = json.Unmarshal(raw, &envelope)
		return nil, envelopeError(resp.StatusCode, envelope.Error)
	}

	return raw, nil
}

func (c *Client) resolve(endpoint string, params url.Values) string {
	target := strings.TrimSpace(endpoint)
	if !strings.Contains(target, "://") {
		if !strings.HasPrefix(target, "/") {
			target = "/" + target
		}
		target = c.baseURL + target
	}

	if len(params) == 0 {
		return target
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + params.Encode()
}

func envelopeError(status int, body *model.APIError) error {
	if body == nil || body.Code == "" {
		if status == http.StatusOK {
			return apierror.New("INTERNAL_ERROR", "request was not successful", "", status)
		}
		return apierror.FromStatus(status)
	}
	return apierror.New(body.Code, body.Message, body.Details, status)
}

func isUnauthorized(err error) bool {
	apiErr, ok := apierror.As(err)
	return ok && apiErr.HTTPStatus == http.StatusUnauthorized
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"))
}

func snippet(raw []byte) string {
	text := strings.TrimSpace(string(raw))
	if len(text) > snippetLength {
		return text[:snippetLength]
	}
	return text
}

func toUser(u model.AuthUser) *auth.User {
	if u.ID == "" && u.Username == "" {
		return nil
	}
	return &auth.User{ID: u.ID, Username: u.Username, Role: u.Role, Permissions: u.Permissions}
}
