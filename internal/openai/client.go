package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 90 * time.Second
)

// CallError is a failed generative call. Transport errors, non-2xx statuses,
// refusals, and empty completions all surface as CallError so callers can
// treat them uniformly as retryable.
type CallError struct {
	Status    int    // HTTP status, 0 for transport-level failures
	RequestID string // x-request-id header when the API returned one
	Message   string
	Err       error
}

func (e *CallError) Error() string {
	switch {
	case e.Status != 0 && e.RequestID != "":
		return fmt.Sprintf("openai status %d (request %s): %s", e.Status, e.RequestID, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("openai status %d: %s", e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("openai request failed: %v", e.Err)
	default:
		return "openai: " + e.Message
	}
}

func (e *CallError) Unwrap() error { return e.Err }

// HTTPDoer allows tests to fake HTTP transport.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config carries client settings; empty fields fall back to defaults.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client calls OpenAI Chat Completions with strict JSON schema output.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient HTTPDoer
}

// NewClient creates a client with sane defaults. The API key must come from
// configuration; the client never embeds one.
func NewClient(cfg Config, httpClient HTTPDoer) *Client {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		endpoint:   strings.TrimSuffix(cfg.BaseURL, "/") + "/chat/completions",
		httpClient: httpClient,
	}
}

// GenerateStructured requests strict structured output for one prompt pair
// and returns the raw JSON content plus the API request id when available.
func (c *Client) GenerateStructured(
	ctx context.Context,
	systemPrompt string,
	userPrompt string,
	schemaName string,
	schema map[string]any,
) (string, string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", "", errors.New("OPENAI_API_KEY is empty")
	}

	payload, err := json.Marshal(chatCompletionsRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: responseFormat{
			Type: "json_schema",
			JSONSchema: responseJSONSchema{
				Name:   schemaName,
				Strict: true,
				Schema: schema,
			},
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("marshal openai request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", "", fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", "", &CallError{Err: err}
	}
	defer response.Body.Close()

	requestID := response.Header.Get("x-request-id")

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", requestID, &CallError{RequestID: requestID, Message: "read response body", Err: err}
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		message := strings.TrimSpace(string(body))
		var apiErr openAIErrorEnvelope
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			message = apiErr.Error.Message
		}
		return "", requestID, &CallError{Status: response.StatusCode, RequestID: requestID, Message: message}
	}

	var parsed chatCompletionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", requestID, &CallError{RequestID: requestID, Message: "decode response", Err: err}
	}

	if parsed.Error.Message != "" {
		return "", requestID, &CallError{RequestID: requestID, Message: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 {
		return "", requestID, &CallError{RequestID: requestID, Message: "no choices returned"}
	}

	message := parsed.Choices[0].Message
	if strings.TrimSpace(message.Refusal) != "" {
		return "", requestID, &CallError{RequestID: requestID, Message: "refusal: " + strings.TrimSpace(message.Refusal)}
	}

	content, err := parseMessageContent(message.Content)
	if err != nil {
		return "", requestID, err
	}
	if strings.TrimSpace(content) == "" {
		return "", requestID, &CallError{RequestID: requestID, Message: "empty completion content"}
	}

	return content, requestID, nil
}

func parseMessageContent(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil
	}

	var asParts []responseContentPart
	if err := json.Unmarshal(raw, &asParts); err == nil {
		var builder strings.Builder
		for _, part := range asParts {
			if part.Type == "text" {
				builder.WriteString(part.Text)
			}
		}
		return builder.String(), nil
	}

	return "", fmt.Errorf("unsupported openai message content format: %s", string(raw))
}

type chatCompletionsRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string             `json:"type"`
	JSONSchema responseJSONSchema `json:"json_schema"`
}

type responseJSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatCompletionsResponse struct {
	Choices []chatChoice        `json:"choices"`
	Error   openAIErrorResponse `json:"error"`
}

type chatChoice struct {
	Message chatMessageResponse `json:"message"`
}

type chatMessageResponse struct {
	Content json.RawMessage `json:"content"`
	Refusal string          `json:"refusal"`
}

type responseContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type openAIErrorEnvelope struct {
	Error openAIErrorResponse `json:"error"`
}

type openAIErrorResponse struct {
	Message string `json:"message"`
}
