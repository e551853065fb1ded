package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// APIError is a non-2xx reply from the API
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini API error %d", e.StatusCode)
	}
	return fmt.Sprintf("gemini API error %d (%s): %s", e.StatusCode, e.Status, e.Message)
}

// Config holds client settings
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client calls the generative-language REST API
type Client struct {
	client *resty.Client
	model  string
	log    zerolog.Logger
}

// NewClient creates a new Gemini client
func NewClient(cfg Config, log zerolog.Logger) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("x-goog-api-key", cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Client{
		client: client,
		model:  cfg.Model,
		log:    log.With().Str("component", "gemini").Logger(),
	}
}

// Model returns the model name requests are sent to
func (c *Client) Model() string {
	return c.model
}

// GenerateContent sends one generateContent request and decodes the reply.
// Blocked prompts and non-2xx replies are returned as errors.
func (c *Client) GenerateContent(ctx context.Context, req *GenerateContentRequest) (*GenerateContentResponse, error) {
	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/v1beta/models/" + url.PathEscape(c.model) + ":generateContent")
	if err != nil {
		return nil, fmt.Errorf("failed to call generateContent: %w", err)
	}

	c.log.Debug().
		Int("status", resp.StatusCode()).
		Dur("duration", time.Since(start)).
		Str("model", c.model).
		Msg("generateContent finished")

	if resp.IsError() {
		apiErr := &APIError{StatusCode: resp.StatusCode(), Status: resp.Status()}
		var body errorResponse
		if json.Unmarshal(resp.Body(), &body) == nil && body.Error.Message != "" {
			apiErr.Status = body.Error.Status
			apiErr.Message = body.Error.Message
		}
		return nil, apiErr
	}

	var out GenerateContentResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("failed to decode generateContent response: %w", err)
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("prompt blocked: %s", out.PromptFeedback.BlockReason)
	}
	return &out, nil
}
