package nodes

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/weftlabs/weft/internal/urlguard"
	"github.com/weftlabs/weft/pkg/api"
)

// HTTPRequestHandler performs the http-request node: an arbitrary outbound
// HTTP call with the resolved URL checked by urlguard before any network
// attempt. Non-2xx responses are errors so the retry policy applies.
type HTTPRequestHandler struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

func (h *HTTPRequestHandler) Type() api.NodeType { return api.NodeHTTPRequest }

func (h *HTTPRequestHandler) Required() []string { return []string{"url"} }

func (h *HTTPRequestHandler) Execute(ctx context.Context, req Request) (any, error) {
	rawURL := stringField(req.Data, "url")

	// The safety check is synchronous and runs to completion before the
	// request timeout clock starts.
	if _, err := urlguard.Validate(rawURL); err != nil {
		return nil, &api.SecurityError{URL: rawURL, Reason: err.Error()}
	}

	method := strings.ToUpper(stringField(req.Data, "method"))
	if method == "" {
		method = http.MethodGet
	}

	timeout := time.Duration(intField(req.Data, "timeoutMs", 30000)) * time.Millisecond
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := wait(ctx, h.Limiter); err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if body, ok := req.Data["body"]; ok && body != nil {
		if s, isString := body.(string); isString {
			bodyReader = strings.NewReader(s)
		} else {
			data, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("encode request body: %w", err)
			}
			bodyReader = bytes.NewReader(data)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if headers, ok := req.Data["headers"].(map[string]any); ok {
		for k, v := range headers {
			httpReq.Header.Set(k, fmt.Sprintf("%v", v))
		}
	}
	if bodyReader != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed any
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		parsed = string(respBody)
	}

	respHeaders := make(map[string]any, len(resp.Header))
	for k, v := range resp.Header {
		if len(v) == 1 {
			respHeaders[k] = v[0]
		} else {
			respHeaders[k] = v
		}
	}

	output := map[string]any{
		"statusCode": resp.StatusCode,
		"body":       parsed,
		"headers":    respHeaders,
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return output, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return output, nil
}
