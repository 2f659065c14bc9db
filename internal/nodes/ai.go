package nodes

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/weftlabs/weft/internal/urlguard"
	"github.com/weftlabs/weft/pkg/api"
)

// AIRequestHandler calls an OpenAI-compatible chat completion endpoint.
// The endpoint is configurable per node so self-hosted gateways work, and
// it goes through urlguard like every other outbound call.
type AIRequestHandler struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

func (h *AIRequestHandler) Type() api.NodeType { return api.NodeAIRequest }

func (h *AIRequestHandler) Required() []string { return []string{"model", "prompt"} }

func (h *AIRequestHandler) Execute(ctx context.Context, req Request) (any, error) {
	endpoint := stringField(req.Data, "endpoint")
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/chat/completions"
	}

	if _, err := urlguard.Validate(endpoint); err != nil {
		return nil, &api.SecurityError{URL: endpoint, Reason: err.Error()}
	}

	body := map[string]any{
		"model": stringField(req.Data, "model"),
		"messages": []map[string]any{
			{"role": "user", "content": stringField(req.Data, "prompt")},
		},
	}
	if system := stringField(req.Data, "system"); system != "" {
		body["messages"] = append([]map[string]any{
			{"role": "system", "content": system},
		}, body["messages"].([]map[string]any)...)
	}
	if temp, ok := req.Data["temperature"].(float64); ok {
		body["temperature"] = temp
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(intField(req.Data, "timeoutMs", 60000)) * time.Millisecond
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := wait(ctx, h.Limiter); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if key := stringField(req.Data, "apiKey"); key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := h.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ai request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ai endpoint returned status %d: %s", resp.StatusCode, truncate(raw, 256))
	}

	var parsed struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage map[string]any `json:"usage"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("ai response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("ai response contained no choices")
	}

	return map[string]any{
		"reply": parsed.Choices[0].Message.Content,
		"model": parsed.Model,
		"usage": parsed.Usage,
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
