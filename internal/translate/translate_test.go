package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStub_Translate(t *testing.T) {
	s := NewStub()

	got, err := s.Translate(context.Background(), []string{"I", "WANT", "WATER"}, "")
	if err != nil {
		t.Fatalf("Translate() failed: %v", err)
	}
	if got != "I want water." {
		t.Errorf("Translate() = %q, want %q", got, "I want water.")
	}
	if s.Calls() != 1 {
		t.Errorf("Calls() = %d, want 1", s.Calls())
	}
}

func TestStub_Error(t *testing.T) {
	s := NewStub()
	wantErr := errors.New("service down")
	s.SetError(wantErr)

	if _, err := s.Translate(context.Background(), []string{"HELLO"}, ""); !errors.Is(err, wantErr) {
		t.Errorf("expected configured error, got %v", err)
	}
	if s.Calls() != 1 {
		t.Errorf("failed calls must still count, got %d", s.Calls())
	}
}

func TestStub_EmptyWords(t *testing.T) {
	s := NewStub()
	if _, err := s.Translate(context.Background(), nil, ""); err == nil {
		t.Error("expected error for empty word list")
	}
}

func TestOpenAIClient_Translate(t *testing.T) {
	var gotReq chatRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": ` "I want water." `}},
			},
		})
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOpenAIClient() failed: %v", err)
	}

	got, err := client.Translate(context.Background(), []string{"I", "WANT", "WATER"}, "")
	if err != nil {
		t.Fatalf("Translate() failed: %v", err)
	}
	if got != "I want water." {
		t.Errorf("Translate() = %q, want %q", got, "I want water.")
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != DefaultModel {
		t.Errorf("model = %q, want %q", gotReq.Model, DefaultModel)
	}
	if gotReq.Temperature != DefaultTemperature {
		t.Errorf("temperature = %f, want %f", gotReq.Temperature, DefaultTemperature)
	}
	if gotReq.MaxTokens != DefaultMaxTokens {
		t.Errorf("max tokens = %d, want %d", gotReq.MaxTokens, DefaultMaxTokens)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[1].Content != "i want water" {
		t.Errorf("user message = %+v, want lowercased joined words", gotReq.Messages)
	}
}

func TestOpenAIClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limit exceeded", "type": "rate_limit_error"},
		})
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOpenAIClient() failed: %v", err)
	}

	_, err = client.Translate(context.Background(), []string{"HELLO"}, "")
	if err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("expected rate limit error, got %v", err)
	}
}

func TestOpenAIClient_RequiresAPIKey(t *testing.T) {
	if _, err := NewOpenAIClient(OpenAIConfig{}); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestOpenAIClient_ContextHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !strings.Contains(req.Messages[0].Content, "casual conversation") {
			t.Errorf("system prompt missing hint: %q", req.Messages[0].Content)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Hello."}},
			},
		})
	}))
	defer srv.Close()

	client, _ := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
	if _, err := client.Translate(context.Background(), []string{"HELLO"}, "casual conversation"); err != nil {
		t.Fatalf("Translate() failed: %v", err)
	}
}
