package nodes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/goccy/go-json"

	"github.com/weftlabs/weft/pkg/api"
)

func TestAIRequest_Success(t *testing.T) {
	var seen *http.Request
	var payload map[string]any
	h := &AIRequestHandler{Client: fakeClient(func(r *http.Request) (*http.Response, error) {
		seen = r
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &payload)
		return jsonResponse(200, `{
			"model": "gpt-4o-mini",
			"choices": [{"message": {"content": "summary text"}}],
			"usage": {"total_tokens": 12}
		}`), nil
	})}

	out, err := h.Execute(context.Background(), testRequest(api.Node{ID: "ai", Type: api.NodeAIRequest}, map[string]any{
		"endpoint": "https://gateway.example.com/v1/chat/completions",
		"model":    "gpt-4o-mini",
		"prompt":   "summarize this order",
		"system":   "you are terse",
		"apiKey":   "sk-test",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if seen.Header.Get("Authorization") != "Bearer sk-test" {
		t.Fatalf("auth header = %q", seen.Header.Get("Authorization"))
	}

	messages := payload["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages = %v", messages)
	}
	if messages[0].(map[string]any)["role"] != "system" {
		t.Fatalf("system message not first: %v", messages)
	}

	m := out.(map[string]any)
	if m["reply"] != "summary text" || m["model"] != "gpt-4o-mini" {
		t.Fatalf("out = %v", m)
	}
}

func TestAIRequest_ErrorPaths(t *testing.T) {
	h := &AIRequestHandler{Client: fakeClient(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(429, `{"error":"rate limited"}`), nil
	})}
	_, err := h.Execute(context.Background(), testRequest(api.Node{ID: "ai", Type: api.NodeAIRequest}, map[string]any{
		"model":  "m",
		"prompt": "p",
	}))
	if err == nil || !api.Retryable(err) {
		t.Fatalf("expected retryable error for 429, got %v", err)
	}

	h = &AIRequestHandler{Client: fakeClient(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"choices": []}`), nil
	})}
	_, err = h.Execute(context.Background(), testRequest(api.Node{ID: "ai", Type: api.NodeAIRequest}, map[string]any{
		"model":  "m",
		"prompt": "p",
	}))
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestAIRequest_BlockedEndpoint(t *testing.T) {
	h := &AIRequestHandler{Client: fakeClient(func(r *http.Request) (*http.Response, error) {
		t.Fatal("transport reached for blocked endpoint")
		return nil, nil
	})}
	_, err := h.Execute(context.Background(), testRequest(api.Node{ID: "ai", Type: api.NodeAIRequest}, map[string]any{
		"endpoint": "http://ai.internal/v1/chat/completions",
		"model":    "m",
		"prompt":   "p",
	}))
	var se *api.SecurityError
	if !errors.As(err, &se) {
		t.Fatalf("expected SecurityError, got %v", err)
	}
}
