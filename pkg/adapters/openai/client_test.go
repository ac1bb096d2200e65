package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/your-org/ai3/pkg/adapters"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header: %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "hello") {
			t.Fatalf("request body missing prompt: %s", string(body))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output_text":"world","usage":{"input_tokens":2,"output_tokens":5}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.Client(), srv.URL)
	resp, err := c.Generate(context.Background(), adapters.GenerateRequest{Prompt: "hello"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if resp.Text != "world" || resp.InputTokens != 2 || resp.OutputTokens != 5 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGenerateFallsBackToOutputContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":[{"content":[{"type":"output_text","text":"fallback text"}]}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.Client(), srv.URL)
	resp, err := c.Generate(context.Background(), adapters.GenerateRequest{Prompt: "hello"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if resp.Text != "fallback text" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGenerateMissingAPIKey(t *testing.T) {
	c := NewClient("", nil, "")
	_, err := c.Generate(context.Background(), adapters.GenerateRequest{Prompt: "hello"})
	if err != adapters.ErrMissingAPIKey {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestGenerateEmptyPrompt(t *testing.T) {
	c := NewClient("test-key", nil, "")
	_, err := c.Generate(context.Background(), adapters.GenerateRequest{Prompt: ""})
	if err != adapters.ErrEmptyPrompt {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
}
