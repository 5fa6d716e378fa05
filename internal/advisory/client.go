package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

const (
	// DefaultURL is the Groq OpenAI-compatible chat completion endpoint.
	DefaultURL = "https://api.groq.com/openai/v1/chat/completions"
	// DefaultModel is the model asked for advisories.
	DefaultModel = "llama-3.1-8b-instant"

	samplingTemperature = 0.7
)

// ErrEmptyCompletion is returned when the API answers without any choices.
var ErrEmptyCompletion = errors.New("advisory API returned no choices")

// APIError is an error object reported inside the completion response.
type APIError struct {
	Message string
	Type    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client calls a chat completion endpoint with bearer authentication.
// Deadlines come from the caller's context; the client sets none of its own.
type Client struct {
	apiKey   string
	endpoint string
	model    string
	client   *http.Client
}

// NewClientWithURL constructs a Client for a custom endpoint and model.
func NewClientWithURL(endpoint, model, apiKey string) *Client {
	return &Client{apiKey: apiKey, endpoint: endpoint, model: model, client: &http.Client{}}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends prompt as a single user message and returns the raw completion text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: samplingTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return "", fmt.Errorf("POST %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	// Error objects arrive on non-2xx responses too, so decode before checking status.
	var raw chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("decoding completion response (status %d): %w", resp.StatusCode, err)
	}

	if raw.Error != nil {
		return "", &APIError{Message: raw.Error.Message, Type: raw.Error.Type}
	}
	if len(raw.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return raw.Choices[0].Message.Content, nil
}
