// Package auth talks to the ERP login endpoint.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desolution/erpshell/internal/session"
	"github.com/google/uuid"
)

const (
	defaultTimeout = 10 * time.Second
	loginPath      = "users.php"
	maxBodyBytes   = 1 << 20
)

// Encoding selects how login credentials are sent.
type Encoding string

const (
	EncodingJSON      Encoding = "json"
	EncodingForm      Encoding = "form"
	EncodingMultipart Encoding = "multipart"
)

// ParseEncoding validates an encoding name. Empty means JSON.
func ParseEncoding(raw string) (Encoding, error) {
	switch e := Encoding(strings.ToLower(strings.TrimSpace(raw))); e {
	case "":
		return EncodingJSON, nil
	case EncodingJSON, EncodingForm, EncodingMultipart:
		return e, nil
	default:
		return "", fmt.Errorf("unsupported login encoding %q", raw)
	}
}

// Login errors.
var (
	ErrUserNotInResponse = errors.New("user not found in response data")
	ErrBaseURLRequired   = errors.New("api base URL is empty")
)

// Messages shown when the server gives none.
const (
	MessageLoginFailed  = "Login failed"
	MessageNetworkError = "Network error occurred"
)

// AuthError is a rejected login or a failed request. Message is safe to show.
type AuthError struct {
	Message string
	Status  int
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil && !strings.EqualFold(e.Err.Error(), e.Message) {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Credentials are submitted by the login form.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Company  string `json:"company,omitempty"`
}

// Login form messages.
const (
	MessageUsernameRequired = "Username is required"
	MessagePasswordRequired = "Password is required"
	MessagePasswordTooShort = "Password must be at least 3 characters"
)

// FieldErrors maps form fields to user-facing messages.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for _, field := range []string{"username", "password"} {
		if msg, ok := f[field]; ok {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "; ")
}

// Validate checks the credentials the way the login form does. It returns
// nil or a FieldErrors.
func (c Credentials) Validate() error {
	errs := FieldErrors{}
	if strings.TrimSpace(c.Username) == "" {
		errs["username"] = MessageUsernameRequired
	}
	switch {
	case strings.TrimSpace(c.Password) == "":
		errs["password"] = MessagePasswordRequired
	case len(c.Password) < 3:
		errs["password"] = MessagePasswordTooShort
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Result is a successful login.
type Result struct {
	User    session.User
	Token   string
	Message string
}

type envelope struct {
	Status  any               `json:"status"`
	Message string            `json:"message"`
	Token   string            `json:"token"`
	Data    []json.RawMessage `json:"data"`
}

func (e envelope) ok() bool {
	switch v := e.Status.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}

// Client handles login HTTP calls.
type Client struct {
	BaseURL  string
	Encoding Encoding
	Client   *http.Client
}

// NewClient constructs a client with defaults applied.
func NewClient(baseURL string, encoding Encoding, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if encoding == "" {
		encoding = EncodingJSON
	}
	return &Client{
		BaseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Encoding: encoding,
		Client:   &http.Client{Timeout: timeout},
	}
}

// Login submits creds and returns the matching user record. token, when
// non-empty, is sent as a bearer credential.
func (c *Client) Login(ctx context.Context, creds Credentials, token string) (*Result, error) {
	baseURL, err := c.baseURL()
	if err != nil {
		return nil, err
	}

	body, contentType, err := c.encode(creds)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/"+loginPath, body)
	if err != nil {
		return nil, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, &AuthError{Message: MessageNetworkError, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &AuthError{Message: MessageNetworkError, Status: resp.StatusCode, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode >= 300 {
			return nil, &AuthError{Message: MessageNetworkError, Status: resp.StatusCode}
		}
		return nil, &AuthError{Message: MessageLoginFailed, Status: resp.StatusCode, Err: fmt.Errorf("decode login response: %w", err)}
	}

	if resp.StatusCode >= 300 || !env.ok() {
		message := strings.TrimSpace(env.Message)
		if message == "" {
			message = MessageLoginFailed
		}
		return nil, &AuthError{Message: message, Status: resp.StatusCode}
	}

	for _, raw := range env.Data {
		user, err := session.ParseUser(raw)
		if err != nil {
			continue
		}
		if user.ID() == creds.Username {
			return &Result{User: user, Token: env.Token, Message: env.Message}, nil
		}
	}

	return nil, &AuthError{Message: "User not found in response data", Status: resp.StatusCode, Err: ErrUserNotInResponse}
}

func (c *Client) encode(creds Credentials) (io.Reader, string, error) {
	switch c.Encoding {
	case EncodingForm:
		values := url.Values{}
		values.Set("username", creds.Username)
		values.Set("password", creds.Password)
		if creds.Company != "" {
			values.Set("company", creds.Company)
		}
		return strings.NewReader(values.Encode()), "application/x-www-form-urlencoded", nil
	case EncodingMultipart:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		fields := [][2]string{{"username", creds.Username}, {"password", creds.Password}}
		if creds.Company != "" {
			fields = append(fields, [2]string{"company", creds.Company})
		}
		for _, f := range fields {
			if err := w.WriteField(f[0], f[1]); err != nil {
				return nil, "", fmt.Errorf("encode multipart field %s: %w", f[0], err)
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", fmt.Errorf("encode multipart body: %w", err)
		}
		return &buf, w.FormDataContentType(), nil
	default:
		data, err := json.Marshal(creds)
		if err != nil {
			return nil, "", fmt.Errorf("encode payload: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func (c *Client) baseURL() (string, error) {
	if c == nil {
		return "", errors.New("auth client is nil")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		return "", ErrBaseURLRequired
	}
	return baseURL, nil
}

func (c *Client) httpClient() *http.Client {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: defaultTimeout}
	}
	return c.Client
}
