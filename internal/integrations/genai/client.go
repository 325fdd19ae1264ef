package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/deposit-service/internal/config"
	"github.com/Dan9191/deposit-service/internal/models"
)

var (
	// ErrDisabled is returned when no API key is configured
	ErrDisabled = errors.New("text generation is disabled")
	// ErrMalformedResponse is returned when the reply does not match the schema
	ErrMalformedResponse = errors.New("malformed text generation response")
)

// APIError is returned for a non-200 reply
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("text generation API error (status %d): %s", e.StatusCode, e.Body)
}

// Client calls an OpenAI compatible chat completions endpoint
type Client struct {
	apiKey     string
	apiURL     string
	model      string
	maxTokens  int
	httpClient *http.Client
	log        *logrus.Logger
}

// NewClient initializes a new text generation client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		apiKey:    cfg.LLMAPIKey,
		apiURL:    cfg.LLMAPIURL,
		model:     cfg.LLMModel,
		maxTokens: cfg.LLMMaxTokens,
		httpClient: &http.Client{
			// the caller's context carries the real deadline
			Timeout: cfg.ExplanationTimeout + 5*time.Second,
		},
		log: log,
	}
}

// Enabled reports whether an API key is configured
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type jsonSchema struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// explanationPayload is the schema the model must answer with
type explanationPayload struct {
	Explanation *string `json:"explanation"`
}

var explanationSchema = json.RawMessage(`{
	"type": "object",
	"properties": {"explanation": {"type": "string"}},
	"required": ["explanation"],
	"additionalProperties": false
}`)

// GenerateExplanation asks the model to explain a deposit calculation
func (c *Client) GenerateExplanation(ctx context.Context, req models.ExplanationRequest) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	prompt, err := BuildPrompt(req)
	if err != nil {
		return "", fmt.Errorf("failed to build prompt: %w", err)
	}

	body, err := c.sendRequest(ctx, chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: c.maxTokens,
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchema{
				Name:   "fd_explanation",
				Strict: true,
				Schema: explanationSchema,
			},
		},
	})
	if err != nil {
		return "", err
	}

	return parseExplanation(body)
}

func (c *Client) sendRequest(ctx context.Context, reqBody chatRequest) ([]byte, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	c.log.Debugf("text generation response: %s", string(body))
	return body, nil
}

func parseExplanation(body []byte) (string, error) {
	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(chat.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}

	dec := json.NewDecoder(strings.NewReader(chat.Choices[0].Message.Content))
	dec.DisallowUnknownFields()
	var payload explanationPayload
	if err := dec.Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: content is not a valid explanation object: %v", ErrMalformedResponse, err)
	}
	if payload.Explanation == nil {
		return "", fmt.Errorf("%w: explanation field missing", ErrMalformedResponse)
	}

	explanation := strings.TrimSpace(*payload.Explanation)
	if explanation == "" {
		return "", fmt.Errorf("%w: explanation is empty", ErrMalformedResponse)
	}
	return explanation, nil
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
