package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotConfigured means no API key is available; the request cannot even be
// attempted. ErrGeneration covers everything past that point: transport
// failures, timeouts, and malformed or empty model output. Neither is retried.
var (
	ErrNotConfigured = errors.New("ai api key not configured")
	ErrGeneration    = errors.New("ai generation failed")
)

// Config selects the OpenAI-compatible endpoint to call.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client talks to an OpenAI-compatible chat-completions API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GenerateRequest describes one batch request to the model. Columns is the
// ordered target column list; when empty the default title/description/
// category/status schema is requested. Existing carries rows to be optimized
// in place; when nil the model is asked for new rows.
type GenerateRequest struct {
	Description string
	Inputs      map[string]string
	Columns     []string
	Existing    []map[string]string
}

// Generate asks the model for candidate requirement rows. Rows may come back
// with fewer entries than requested, extra columns, or missing target columns;
// callers must reconcile against their own column list.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) ([]map[string]string, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	var messages []ChatMessage
	if req.Existing != nil {
		messages = buildOptimizeMessages(req)
	} else {
		messages = buildGenerateMessages(req)
	}

	raw, err := c.chat(ctx, messages)
	if err != nil {
		return nil, err
	}

	rows, err := parseRequirements(raw, req.Columns)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return rows, nil
}

// GenerateAlternative asks for a single improved version of one requirement.
func (c *Client) GenerateAlternative(ctx context.Context, req AlternativeRequest) (map[string]string, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	raw, err := c.chat(ctx, buildAlternativeMessages(req))
	if err != nil {
		return nil, err
	}

	rows, err := parseRequirements(raw, req.Columns)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty result", ErrGeneration)
	}
	return rows[0], nil
}

// AlternativeRequest carries the latest version of a requirement as context.
type AlternativeRequest struct {
	ProjectName string
	Title       string
	Description string
	Category    string
	CustomData  map[string]string
	Columns     []string
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Client) chat(ctx context.Context, messages []ChatMessage) (string, error) {
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.2,
		MaxTokens:   2000,
	}
	bodyBytes, _ := json.Marshal(reqBody)

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	defer resp.Body.Close()

	respBytes, _ := io.ReadAll(resp.Body)

	var result chatResponse
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrGeneration, err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrGeneration, result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrGeneration)
	}
	return result.Choices[0].Message.Content, nil
}
