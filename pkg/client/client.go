package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/terra-clan/certificate-studio/internal/app"
	"github.com/terra-clan/certificate-studio/internal/models"
)

// ProfileHeader carries the profile id on every request
const ProfileHeader = "X-Profile-ID"

// Client is a Go SDK for the certificate-studio API
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu      sync.Mutex
	profile string
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithProfile pins the profile id. Without it the client adopts the id the
// server assigns on the first profile-scoped call.
func WithProfile(id string) Option {
	return func(c *Client) {
		c.profile = id
	}
}

// NewClient creates a new certificate-studio client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Profile returns the profile id in use, empty until one is known
func (c *Client) Profile() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// APIError is a failure reported in the response envelope
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s - %s", e.Code, e.Message)
}

// StateResponse is the state of one profile
type StateResponse struct {
	Profile string        `json:"profile"`
	State   app.State     `json:"state"`
	View    app.ViewModel `json:"view"`
}

// Languages lists the languages in the translation table
type Languages struct {
	Languages []string `json:"languages"`
	Default   string   `json:"default"`
}

// ReloadResult reports a data reload
type ReloadResult struct {
	LoadedAt time.Time `json:"loaded_at"`
	Sessions int       `json:"sessions"`
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, "GET", "/health", nil, nil)
}

// ListLanguages retrieves the available languages
func (c *Client) ListLanguages(ctx context.Context) (*Languages, error) {
	var out Languages
	if err := c.call(ctx, "GET", "/api/v1/languages", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Translations retrieves the label table of lang
func (c *Client) Translations(ctx context.Context, lang string) (map[string]string, error) {
	var out map[string]string
	if err := c.call(ctx, "GET", "/api/v1/translations/"+url.PathEscape(lang), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCourses retrieves the courses titled in lang
func (c *Client) ListCourses(ctx context.Context, lang string) ([]models.Option, error) {
	var out struct {
		Courses []models.Option `json:"courses"`
		Total   int             `json:"total"`
	}
	if err := c.call(ctx, "GET", "/api/v1/courses?lang="+url.QueryEscape(lang), nil, &out); err != nil {
		return nil, err
	}
	return out.Courses, nil
}

// ListLevels retrieves the levels of one course edition
func (c *Client) ListLevels(ctx context.Context, lang, courseID string) ([]models.Level, error) {
	var out struct {
		Title  string         `json:"title"`
		Levels []models.Level `json:"levels"`
		Total  int            `json:"total"`
	}
	path := fmt.Sprintf("/api/v1/courses/%s/levels?lang=%s", url.PathEscape(courseID), url.QueryEscape(lang))
	if err := c.call(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return out.Levels, nil
}

// GetState retrieves the state of the profile
func (c *Client) GetState(ctx context.Context) (*StateResponse, error) {
	var out StateResponse
	if err := c.call(ctx, "GET", "/api/v1/state", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Send applies one event: language, course, level, name, date (strings) or stamp (bool)
func (c *Client) Send(ctx context.Context, event string, value any) (*StateResponse, error) {
	body, err := json.Marshal(map[string]any{"value": value})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var out StateResponse
	if err := c.call(ctx, "POST", "/api/v1/state/"+url.PathEscape(event), bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DismissMessage hides the message surface
func (c *Client) DismissMessage(ctx context.Context) (*StateResponse, error) {
	var out StateResponse
	if err := c.call(ctx, "POST", "/api/v1/state/message/dismiss", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetState forgets everything stored for the profile
func (c *Client) ResetState(ctx context.Context) error {
	return c.call(ctx, "DELETE", "/api/v1/state", nil, nil)
}

// Export downloads the certificate PDF into w
func (c *Client) Export(ctx context.Context, w io.Writer) error {
	return c.download(ctx, "POST", "/api/v1/export", w)
}

// Preview downloads the certificate preview PNG into w
func (c *Client) Preview(ctx context.Context, w io.Writer) error {
	return c.download(ctx, "GET", "/api/v1/preview.png", w)
}

// Reload asks the server to fetch its data documents again
func (c *Client) Reload(ctx context.Context) (*ReloadResult, error) {
	var out ReloadResult
	if err := c.call(ctx, "POST", "/api/v1/admin/reload", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// call performs a request and unwraps the response envelope into out
func (c *Client) call(ctx context.Context, method, path string, body io.Reader, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	return decodeEnvelope(resp.StatusCode, respBody, out)
}

// download streams a binary body into w; errors still arrive as an envelope
func (c *Client) download(ctx context.Context, method, path string, w io.Writer) error {
	resp, err := c.send(ctx, method, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		return decodeEnvelope(resp.StatusCode, respBody, nil)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	return nil
}

func decodeEnvelope(status int, body []byte, out any) error {
	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		if status >= 400 {
			return fmt.Errorf("HTTP %d: %s", status, string(body))
		}
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		apiErr := result.Error
		if apiErr == nil {
			apiErr = &APIError{Code: "unknown", Message: http.StatusText(status)}
		}
		apiErr.Status = status
		return apiErr
	}

	if out == nil || len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// send performs an HTTP request carrying the profile id
func (c *Client) send(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if profile := c.Profile(); profile != "" {
		req.Header.Set(ProfileHeader, profile)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if assigned := resp.Header.Get(ProfileHeader); assigned != "" {
		c.mu.Lock()
		if c.profile == "" {
			c.profile = assigned
		}
		c.mu.Unlock()
	}
	return resp, nil
}
