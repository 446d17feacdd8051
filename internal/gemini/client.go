package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Generative Language API endpoint
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// maxErrorBody bounds how much of a failed response is read
const maxErrorBody = 64 * 1024

// FetchError is returned for every failed call; Message is meant to be shown to the user
type FetchError struct {
	Status  int // HTTP status, 0 when the request never completed
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	return e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Options configures a Client
type Options struct {
	BaseURL           string
	Model             string
	APIKey            string
	Timeout           time.Duration
	Generation        GenerationConfig
	RequestsPerMinute int
}

// Client handles communication with the Gemini API
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	generation GenerationConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewClient creates a new Gemini client
func NewClient(opts Options, logger zerolog.Logger) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.RequestsPerMinute))
	}

	return &Client{
		baseURL:    baseURL,
		model:      opts.Model,
		apiKey:     opts.APIKey,
		generation: opts.Generation,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With().Str("component", "gemini").Logger(),
	}
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// Fetch sends one generateContent request and returns the reply text with bold markup removed
func (c *Client) Fetch(ctx context.Context, rc RequestContext) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &FetchError{Message: fmt.Sprintf("request cancelled: %v", err), Err: err}
	}

	req := GenerateRequest{
		Contents:         rc.Contents(),
		GenerationConfig: c.generation,
	}

	// Marshal request to JSON
	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", &FetchError{Message: fmt.Sprintf("failed to marshal request: %v", err), Err: err}
	}

	// Create HTTP request
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(":generateContent"), bytes.NewReader(jsonData))
	if err != nil {
		return "", &FetchError{Message: fmt.Sprintf("failed to create request: %v", err), Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn().Err(err).Msg("request failed")
		return "", &FetchError{Message: fmt.Sprintf("request failed: %v", unwrapURLError(err)), Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Int("turns", len(req.Contents)).
		Dur("elapsed", time.Since(start)).
		Msg("generateContent")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &FetchError{
			Status:  resp.StatusCode,
			Message: errorMessage(resp.StatusCode, resp.Header.Get("Content-Type"), body),
		}
	}

	var genResp GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", &FetchError{Status: resp.StatusCode, Message: fmt.Sprintf("failed to parse response: %v", err), Err: err}
	}

	text, err := replyText(genResp)
	if err != nil {
		return "", &FetchError{Status: resp.StatusCode, Message: err.Error(), Err: err}
	}

	return StripBold(text), nil
}

// ListModels returns the model names available to the API key
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1beta/models?key="+url.QueryEscape(c.apiKey), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", unwrapURLError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &FetchError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, resp.Header.Get("Content-Type"), body)}
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	models := make([]string, len(result.Models))
	for i, m := range result.Models {
		models[i] = strings.TrimPrefix(m.Name, "models/")
	}

	return models, nil
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/v1beta/models/%s%s?key=%s", c.baseURL, url.PathEscape(c.model), method, url.QueryEscape(c.apiKey))
}

// replyText digs the assistant text out of candidates[0].content.parts[0].text
func replyText(resp GenerateResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("response blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", errors.New("unexpected response: no candidates returned")
	}

	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		if reason := resp.Candidates[0].FinishReason; reason != "" {
			return "", fmt.Errorf("unexpected response: empty content (finish reason %s)", reason)
		}
		return "", errors.New("unexpected response: empty content")
	}

	return content.Parts[0].Text, nil
}

// errorMessage turns a failed response body into something readable
func errorMessage(status int, contentType string, body []byte) string {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}

	if looksLikeHTML(contentType, body) {
		if text, err := ExtractText(body); err == nil && text != "" {
			return fmt.Sprintf("API returned status %d: %s", status, text)
		}
	}

	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		return fmt.Sprintf("API returned status %d: %s", status, truncateWords(trimmed, maxErrorWords))
	}

	return fmt.Sprintf("API returned status %d: %s", status, http.StatusText(status))
}

// unwrapURLError drops the method and URL (which carries the API key) from transport errors
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

var boldPattern = regexp.MustCompile(`\*\*(.*?)\*\*`)

// StripBold removes **bold** wrapping, keeping the inner text
func StripBold(text string) string {
	return boldPattern.ReplaceAllString(text, "$1")
}
