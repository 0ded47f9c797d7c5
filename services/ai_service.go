package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// StructuredGenerator is the structured-generation oracle boundary. The
// caller supplies the JSON shape it expects via out; implementations must
// return an error (never fabricated data) on timeout, quota, or validation
// failure so callers can degrade gracefully.
type StructuredGenerator interface {
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string, out interface{}) error
}

// ErrOracleUnavailable wraps transport and quota failures from the oracle.
var ErrOracleUnavailable = errors.New("oracle unavailable")

// ErrOracleBadResponse wraps responses that could not be parsed into the
// expected shape.
var ErrOracleBadResponse = errors.New("oracle returned unusable response")

// AIService calls an OpenAI-compatible chat completions endpoint and decodes
// the reply into the caller's expected JSON shape.
type AIService struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewAIService builds the oracle client from environment configuration
// (OPENAI_API_KEY, OPENAI_MODEL, OPENAI_BASE_URL).
func NewAIService() *AIService {
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o"
	}
	baseURL := strings.TrimRight(os.Getenv("OPENAI_BASE_URL"), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &AIService{
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		model:   model,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// GenerateJSON sends the prompts with JSON response mode enabled and
// unmarshals the model's reply into out.
func (s *AIService) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string, out interface{}) error {
	if s.apiKey == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY not configured", ErrOracleUnavailable)
	}

	payload := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0,
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshaling oracle request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating oracle request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrOracleUnavailable, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d: %s", ErrOracleUnavailable, resp.StatusCode, truncate(string(respBody), 200))
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", ErrOracleBadResponse, resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("%w: %v", ErrOracleBadResponse, err)
	}
	if parsed.Error != nil {
		return fmt.Errorf("%w: %s", ErrOracleUnavailable, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return fmt.Errorf("%w: no choices", ErrOracleBadResponse)
	}

	content := stripCodeFences(parsed.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("%w: %v", ErrOracleBadResponse, err)
	}
	return nil
}

// stripCodeFences removes markdown code fences some models wrap around JSON
// replies even in JSON mode.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
