package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alphatracesol/operator-uplift-gateway/internal/provider"
)

func testProvider(url string) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:  "test-key",
		baseURL: url,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func TestComplete_Mock(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		resp := openAIResponse{
			ID:    "chatcmpl-123",
			Model: "gpt-4o-mini",
			Choices: []openAIChoice{
				{Message: openAIMessage{Role: "assistant", Content: "Hello from OpenAI mock!"}},
			},
			Usage: json.RawMessage(`{"prompt_tokens":10,"completion_tokens":20}`),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := testProvider(server.URL)
	resp, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if resp.Text != "Hello from OpenAI mock!" {
		t.Errorf("Expected mock text, got %s", resp.Text)
	}
	if resp.Provider != "openai" {
		t.Errorf("Expected provider openai, got %s", resp.Provider)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Expected bearer auth header, got %q", gotAuth)
	}
	if len(resp.Usage) == 0 {
		t.Error("Expected usage to be passed through")
	}
}

func TestComplete_DefaultModel(t *testing.T) {
	var capturedReq openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &capturedReq)
		_ = json.NewEncoder(w).Encode(openAIResponse{
			Choices: []openAIChoice{{Message: openAIMessage{Content: "ok"}}},
		})
	}))
	defer server.Close()

	p := testProvider(server.URL)
	_, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if capturedReq.Model != "gpt-4o-mini" {
		t.Errorf("Expected default model, got %s", capturedReq.Model)
	}
}

func TestComplete_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	}))
	defer server.Close()

	p := testProvider(server.URL)
	_, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{{Role: "user", Content: "hi"}},
	})

	var pErr *provider.Error
	if !errors.As(err, &pErr) {
		t.Fatalf("Expected *provider.Error, got %v", err)
	}
	if pErr.Kind != provider.KindUnavailable {
		t.Errorf("Expected unavailable, got %s", pErr.Kind)
	}
	if pErr.Status != http.StatusServiceUnavailable {
		t.Errorf("Expected captured status 503, got %d", pErr.Status)
	}
}

func TestComplete_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	p := testProvider(server.URL)
	_, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{{Role: "user", Content: "hi"}},
	})

	var pErr *provider.Error
	if !errors.As(err, &pErr) || pErr.Kind != provider.KindMalformed {
		t.Fatalf("Expected malformed error, got %v", err)
	}
}

func TestName(t *testing.T) {
	p := New("key", time.Second)
	if p.Name() != "openai" {
		t.Errorf("Expected 'openai', got %s", p.Name())
	}
}
