package speech

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

// ElevenLabs API defaults.
const (
	DefaultBaseURL = "https://api.elevenlabs.io"
	DefaultVoiceID = "XW70ikSsadUbinwLMZ5w"
	DefaultModelID = "eleven_multilingual_v2"
	DefaultTimeout = 30 * time.Second
)

// ElevenLabsConfig configures the ElevenLabs text-to-speech client.
type ElevenLabsConfig struct {
	APIKey     string
	BaseURL    string
	VoiceID    string
	ModelID    string
	HTTPClient *http.Client
}

// ElevenLabsClient calls the public REST endpoint
// POST /v1/text-to-speech/{voice_id} and returns the audio bytes.
type ElevenLabsClient struct {
	config ElevenLabsConfig
	client *http.Client
}

// NewElevenLabsClient creates an ElevenLabs-backed Synthesizer.
func NewElevenLabsClient(config ElevenLabsConfig) (*ElevenLabsClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("elevenlabs api key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.VoiceID == "" {
		config.VoiceID = DefaultVoiceID
	}
	if config.ModelID == "" {
		config.ModelID = DefaultModelID
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	return &ElevenLabsClient{config: config, client: client}, nil
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize requests MP3 audio for the given text.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("nothing to synthesize")
	}
	if voiceID == "" {
		voiceID = c.config.VoiceID
	}

	body, err := json.Marshal(ttsRequest{
		Text:    text,
		ModelID: c.config.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/v1/text-to-speech/" + voiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call elevenlabs: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs returned status %d: %s", resp.StatusCode, truncate(data, 200))
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("elevenlabs returned empty audio")
	}
	return data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
