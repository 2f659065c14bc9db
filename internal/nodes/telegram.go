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

// SendTelegramHandler posts a message through the Telegram Bot API.
type SendTelegramHandler struct {
	Client  *http.Client
	Limiter *rate.Limiter

	// BaseURL overrides the Telegram API endpoint, used by tests.
	BaseURL string
}

func (h *SendTelegramHandler) Type() api.NodeType { return api.NodeSendTelegram }

func (h *SendTelegramHandler) Required() []string { return []string{"botToken", "chatId", "text"} }

func (h *SendTelegramHandler) Execute(ctx context.Context, req Request) (any, error) {
	base := h.BaseURL
	if base == "" {
		base = "https://api.telegram.org"
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", base, stringField(req.Data, "botToken"))

	// Even the fixed Telegram host goes through the egress check; a
	// test/base override must not become an internal-network escape hatch.
	if _, err := urlguard.Validate(endpoint); err != nil {
		return nil, &api.SecurityError{URL: endpoint, Reason: err.Error()}
	}

	payload, err := json.Marshal(map[string]any{
		"chat_id": stringField(req.Data, "chatId"),
		"text":    stringField(req.Data, "text"),
	})
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(intField(req.Data, "timeoutMs", 15000)) * time.Millisecond
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

	resp, err := h.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
		Result      struct {
			MessageID int64 `json:"message_id"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("telegram response: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("telegram api error: %s", parsed.Description)
	}

	return map[string]any{
		"delivered": true,
		"messageId": parsed.Result.MessageID,
	}, nil
}
