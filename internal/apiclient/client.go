// Package apiclient talks to the creatives REST API. It attaches the bearer
// credential, keeps the server's session cookie and turns error payloads
// into *Error values.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/isdelr/creatives/internal/credstore"
	"github.com/isdelr/creatives/internal/models"
	"github.com/rs/zerolog/log"
)

const maxErrorBody = 64 << 10

// TokenSource returns the credential to attach to a request, or "" for none.
type TokenSource func(ctx context.Context) string

// StoreTokenSource reads the credential from store on every call.
func StoreTokenSource(store credstore.Store) TokenSource {
	return func(ctx context.Context) string {
		tok, ok, err := store.Get(ctx, credstore.CredentialKey)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to read stored credential")
			return ""
		}
		if !ok {
			return ""
		}
		return tok
	}
}

// Client is the API gateway.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenSource

	mu             sync.RWMutex
	onUnauthorized func(rejected string)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is added
// if it has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithTokenSource sets where credentials come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url must be http or https, got %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		token:   func(context.Context) string { return "" },
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

// OnUnauthorized registers fn to be called with the rejected credential
// whenever a credentialed request comes back 401.
func (c *Client) OnUnauthorized(fn func(rejected string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Jar returns the cookie jar holding the server's session cookie.
func (c *Client) Jar() http.CookieJar {
	return c.http.Jar
}

// Token returns the credential the client would attach right now.
func (c *Client) Token(ctx context.Context) string {
	return c.token(ctx)
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	// credential is attached as a bearer token when non-empty.
	credential string
	// reportRejection fires the unauthorized hook on 401.
	reportRejection bool
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.credential != "" {
		req.Header.Set("Authorization", "Bearer "+r.credential)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, r.method, r.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &Error{StatusCode: resp.StatusCode, Detail: parseDetail(body)}
		if resp.StatusCode == http.StatusUnauthorized && r.reportRejection && r.credential != "" {
			c.reportRejected(r.credential)
		}
		return apiErr
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrMalformedResponse, r.method, r.path, err)
	}
	return nil
}

func (c *Client) reportRejected(credential string) {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn(credential)
	}
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// CurrentUser fetches the identity behind the stored credential.
func (c *Client) CurrentUser(ctx context.Context) (models.User, error) {
	return c.CurrentUserWith(ctx, c.token(ctx))
}

// CurrentUserWith fetches the identity behind an explicit credential.
func (c *Client) CurrentUserWith(ctx context.Context, credential string) (models.User, error) {
	var user models.User
	err := c.do(ctx, request{
		method:          http.MethodGet,
		path:            "/api/auth/me",
		credential:      credential,
		reportRejection: true,
	}, &user)
	if err != nil {
		return models.User{}, err
	}
	if user.ID == "" {
		return models.User{}, fmt.Errorf("%w: user record without id", ErrMalformedResponse)
	}
	return user, nil
}

// Login exchanges a username and password for a credential.
func (c *Client) Login(ctx context.Context, username, password string) (models.TokenResponse, error) {
	form := url.Values{"username": {username}, "password": {password}}
	var tok models.TokenResponse
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/auth/login",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, &tok)
	if err != nil {
		return models.TokenResponse{}, err
	}
	if tok.AccessToken == "" {
		return models.TokenResponse{}, fmt.Errorf("%w: empty access_token", ErrMalformedResponse)
	}
	return tok, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, reg models.Registration) (models.User, error) {
	body, err := jsonBody(reg)
	if err != nil {
		return models.User{}, err
	}
	var user models.User
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/auth/register",
		body:        body,
		contentType: "application/json",
	}, &user)
	return user, err
}

// Logout asks the server to invalidate the stored credential.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, request{
		method:     http.MethodPost,
		path:       "/api/auth/logout",
		credential: c.token(ctx),
	}, nil)
}

// OAuthCallback signs in through a mock social provider.
func (c *Client) OAuthCallback(ctx context.Context, provider string, profile models.OAuthProfile) (models.TokenResponse, error) {
	if err := models.CheckProvider(provider); err != nil {
		return models.TokenResponse{}, err
	}
	body, err := jsonBody(profile)
	if err != nil {
		return models.TokenResponse{}, err
	}
	var tok models.TokenResponse
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/oauth/" + provider + "/callback",
		body:        body,
		contentType: "application/json",
	}, &tok)
	if err != nil {
		return models.TokenResponse{}, err
	}
	if tok.AccessToken == "" {
		return models.TokenResponse{}, fmt.Errorf("%w: empty access_token", ErrMalformedResponse)
	}
	return tok, nil
}

// AdminListUsers lists every account. Requires an admin credential.
func (c *Client) AdminListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := c.do(ctx, request{
		method:          http.MethodGet,
		path:            "/api/admin/users",
		credential:      c.token(ctx),
		reportRejection: true,
	}, &users)
	return users, err
}

// AdminSetCredits overwrites a user's balance. Requires an admin credential.
func (c *Client) AdminSetCredits(ctx context.Context, userID string, credits int) (models.CreditsUpdate, error) {
	var upd models.CreditsUpdate
	err := c.do(ctx, request{
		method:          http.MethodPatch,
		path:            "/api/admin/users/" + url.PathEscape(userID) + "/credits?credits=" + strconv.Itoa(credits),
		credential:      c.token(ctx),
		reportRejection: true,
	}, &upd)
	return upd, err
}

// PushURL returns the websocket endpoint for user events.
func (c *Client) PushURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/api/ws"
}
