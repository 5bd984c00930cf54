package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bryanwahyu/logtriage/internal/domain/ai"
)

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	if !errors.Is(err, ai.ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient(Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.Model != DefaultModel || c.MaxTokens != defaultMaxTokens {
		t.Errorf("client = %+v", c)
	}
}

func TestAnalyze(t *testing.T) {
	var gotReq map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  gotReq["model"],
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]string{
					"role":    "assistant",
					"content": `{"issue_type":"Syntax Error","root_cause":"x","suggested_fix":"y","severity":"Low"}`,
				},
			}},
		})
	}))
	defer server.Close()

	c, err := NewClient(Config{APIKey: "test-key", BaseURL: server.URL + "/v1/", Model: "test-model"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	out, err := c.Analyze(context.Background(), "SyntaxError at [REDACTED_PATH]")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !strings.Contains(out, `"issue_type":"Syntax Error"`) {
		t.Errorf("content = %q", out)
	}
	if gotReq["model"] != "test-model" {
		t.Errorf("model = %v", gotReq["model"])
	}
	msgs, _ := gotReq["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", gotReq["messages"])
	}
	user, _ := msgs[1].(map[string]any)
	if content, _ := user["content"].(string); !strings.Contains(content, "SyntaxError at [REDACTED_PATH]") {
		t.Errorf("user message = %q", content)
	}
	if rf, _ := gotReq["response_format"].(map[string]any); rf["type"] != "json_object" {
		t.Errorf("response_format = %v", gotReq["response_format"])
	}
}

func TestAnalyzeRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"rate_limit_exceeded"}}`))
	}))
	defer server.Close()

	c, _ := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	_, err := c.Analyze(context.Background(), "boom")
	if !errors.Is(err, ai.ErrQuotaExceeded) {
		t.Errorf("err = %v, want ErrQuotaExceeded", err)
	}
}

func TestAnalyzeNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	c, _ := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	_, err := c.Analyze(context.Background(), "boom")
	if !errors.Is(err, ai.ErrMalformedOutput) {
		t.Errorf("err = %v, want ErrMalformedOutput", err)
	}
}

func TestIsReasoningModel(t *testing.T) {
	for model, want := range map[string]bool{
		"o3-mini":              true,
		"gpt-5":                true,
		"llama-3.1-8b-instant": false,
		"gpt-4o":               false,
	} {
		if got := isReasoningModel(model); got != want {
			t.Errorf("isReasoningModel(%q) = %v", model, got)
		}
	}
}
