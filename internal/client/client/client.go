package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophid/internal/common"
	"github.com/dmitrijs2005/gophid/internal/netx"
)

type Profile struct {
	Email        string `json:"email"`
	Subscription string `json:"subscription"`
	AvatarURL    string `json:"avatarURL,omitempty"`
}

type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  *string   `json:"displayName,omitempty"`
	Subscription string    `json:"subscription"`
	AvatarURL    string    `json:"avatarURL"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ProfileUpdate lists the fields to change; nil fields are left as they are.
type ProfileUpdate struct {
	DisplayName  *string `json:"displayName,omitempty"`
	Email        *string `json:"email,omitempty"`
	Subscription *string `json:"subscription,omitempty"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *HTTPClient) Signup(ctx context.Context, email, password string) (*Profile, error) {
	var p Profile
	if err := c.doJSON(ctx, http.MethodPost, "/users/signup", credentials{email, password}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) Verify(ctx context.Context, token string) error {
	return c.doJSON(ctx, http.MethodGet, "/users/verify/"+url.PathEscape(token), nil, nil)
}

func (c *HTTPClient) ResendVerification(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/users/verify", map[string]string{"email": email}, nil)
}

// Login stores the returned session token for later calls.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (*Profile, error) {
	var resp loginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/users/login", credentials{email, password}, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp.User, nil
}

func (c *HTTPClient) Current(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.doJSON(ctx, http.MethodGet, "/users/current", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Logout ends the session on the server and forgets the local token. The
// token is dropped even if the server rejects it.
func (c *HTTPClient) Logout(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/users/logout", nil, nil)
	c.SetToken("")
	return err
}

func (c *HTTPClient) Update(ctx context.Context, upd ProfileUpdate) (*Account, error) {
	var a Account
	if err := c.doJSON(ctx, http.MethodPatch, "/users/update", upd, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// UploadAvatar sends r as the "avatar" form file and returns the new avatar URL.
func (c *HTTPClient) UploadAvatar(ctx context.Context, filename string, r io.Reader) (string, error) {
	body, contentType, err := netx.MultipartFile("avatar", filename, r)
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}

	var resp struct {
		AvatarURL string `json:"avatarURL"`
	}
	if err := c.do(ctx, http.MethodPatch, "/users/avatars", body, contentType, &resp); err != nil {
		return "", err
	}
	return resp.AvatarURL, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, body, contentType, out)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.Token(); token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if netx.IsUnavailable(err) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg messageResponse
		_ = json.NewDecoder(resp.Body).Decode(&msg)
		return &APIError{Status: resp.StatusCode, Message: msg.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
