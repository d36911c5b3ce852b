package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAI API defaults.
const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-3.5-turbo"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 100
	DefaultTimeout     = 30 * time.Second
)

const systemPrompt = `You are a text correction assistant. Fix incomplete or broken sentences into proper English.

Rules:
1. Correct grammar and add missing words (articles, prepositions, etc.)
2. Capitalize properly
3. Keep the original meaning
4. Make it sound natural
5. Keep it simple and concise

Examples:
Input: "i write pen"
Output: "I write with a pen"

Input: "she go store buy milk"
Output: "She goes to the store to buy milk"

Input: "we eat food good"
Output: "We eat good food"

Fix the following text:`

// OpenAIConfig configures the OpenAI chat-completions client.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
}

// OpenAIClient translates gesture word sequences by asking a chat model to
// fix the broken sentence. A low temperature keeps corrections consistent.
type OpenAIClient struct {
	config OpenAIConfig
	client *http.Client
}

// NewOpenAIClient creates an OpenAI-backed Translator.
func NewOpenAIClient(config OpenAIConfig) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Temperature == 0 {
		config.Temperature = DefaultTemperature
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultMaxTokens
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	return &OpenAIClient{config: config, client: client}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
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

// Translate sends the joined word sequence to the chat-completions endpoint
// and returns the corrected sentence.
func (c *OpenAIClient) Translate(ctx context.Context, words []string, hint string) (string, error) {
	if len(words) == 0 {
		return "", fmt.Errorf("nothing to translate")
	}

	raw := strings.ToLower(strings.Join(words, " "))

	prompt := systemPrompt
	if hint != "" {
		prompt += "\n\nConversation context: " + hint
	}

	body, err := json.Marshal(chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt},
			{Role: "user", Content: raw},
		},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call openai: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("openai error (%s): %s", parsed.Error.Type, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	fixed := strings.TrimSpace(parsed.Choices[0].Message.Content)
	fixed = strings.Trim(fixed, `"`)
	if fixed == "" {
		return "", fmt.Errorf("openai returned empty translation")
	}
	return fixed, nil
}
