package nodes

import (
	"bytes"
	"io"
	"net/http"
	"testing"

	"github.com/weftlabs/weft/internal/datactx"
	"github.com/weftlabs/weft/pkg/api"
)

// roundTripFunc fakes the transport so handler tests never touch the
// network. httptest servers would bind loopback addresses, which urlguard
// rejects on purpose, so requests are intercepted before dialing instead.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func fakeClient(f roundTripFunc) *http.Client {
	return &http.Client{Transport: f}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func testRequest(node api.Node, data map[string]any) Request {
	dctx := datactx.New(api.TriggerEvent{Method: "POST"}, nil)
	return Request{Node: node, Data: data, Ctx: dctx}
}

func TestNewRegistry_CoversAllActionTypes(t *testing.T) {
	r := NewRegistry(Config{})
	for _, typ := range []api.NodeType{
		api.NodeHTTPRequest,
		api.NodeSendEmail,
		api.NodeSendTelegram,
		api.NodeDatabaseQuery,
		api.NodeTransform,
		api.NodeCondition,
		api.NodeAIRequest,
	} {
		if _, ok := r.Handler(typ); !ok {
			t.Fatalf("no handler registered for %s", typ)
		}
	}

	// Trigger types never dispatch.
	for _, typ := range []api.NodeType{
		api.NodeWebhookTrigger,
		api.NodeScheduleTrigger,
		api.NodeEmailTrigger,
	} {
		if _, ok := r.Handler(typ); ok {
			t.Fatalf("unexpected handler for trigger type %s", typ)
		}
	}
}

func TestStringField(t *testing.T) {
	data := map[string]any{"s": "x", "n": 42, "nil": nil}
	if got := stringField(data, "s"); got != "x" {
		t.Fatalf("got %q", got)
	}
	if got := stringField(data, "n"); got != "42" {
		t.Fatalf("got %q", got)
	}
	if got := stringField(data, "nil"); got != "" {
		t.Fatalf("got %q", got)
	}
	if got := stringField(data, "missing"); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestIntField(t *testing.T) {
	data := map[string]any{"i": 7, "f": float64(9), "s": "nope"}
	if got := intField(data, "i", 1); got != 7 {
		t.Fatalf("got %d", got)
	}
	if got := intField(data, "f", 1); got != 9 {
		t.Fatalf("got %d", got)
	}
	if got := intField(data, "s", 1); got != 1 {
		t.Fatalf("got %d", got)
	}
	if got := intField(data, "missing", 5); got != 5 {
		t.Fatalf("got %d", got)
	}
}
