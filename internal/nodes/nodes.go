// Package nodes implements one handler per action node type. The set of
// handlers is closed: the registry is built exhaustively over the node type
// enumeration, so a new node type fails construction until a handler exists
// for it.
package nodes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/weftlabs/weft/internal/datactx"
	"github.com/weftlabs/weft/pkg/api"
)

// Request is everything a handler needs for one node invocation.
type Request struct {
	Node api.Node

	// Data is the node configuration with all templates already resolved.
	Data map[string]any

	// Input is the immediate predecessor's output (nil for nodes directly
	// after the trigger; they read from Ctx instead).
	Input any

	// Ctx is the run's accumulated data, for expression-mode nodes.
	Ctx *datactx.Context
}

// Handler executes one node type.
type Handler interface {
	Type() api.NodeType

	// Required names the Data fields that must resolve non-empty before
	// Execute runs; the engine fails the node with a validation error
	// otherwise.
	Required() []string

	Execute(ctx context.Context, req Request) (any, error)
}

// Config carries the shared resources handlers draw on.
type Config struct {
	// HTTPClient is used for all outbound calls (http-request, telegram,
	// ai-request). If nil a client with a 30s timeout is used.
	HTTPClient *http.Client

	// EgressLimit rate-limits outbound network calls across all runs.
	// Zero means no limit.
	EgressLimit rate.Limit
	EgressBurst int
}

// Registry maps node types to their handlers.
type Registry struct {
	handlers map[api.NodeType]Handler
}

// NewRegistry builds the full handler set. Trigger node types have no
// handler on purpose: the engine never dispatches them.
func NewRegistry(cfg Config) *Registry {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	var limiter *rate.Limiter
	if cfg.EgressLimit > 0 {
		burst := cfg.EgressBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(cfg.EgressLimit, burst)
	}

	r := &Registry{handlers: make(map[api.NodeType]Handler)}
	r.register(
		&HTTPRequestHandler{Client: client, Limiter: limiter},
		&SendEmailHandler{},
		&SendTelegramHandler{Client: client, Limiter: limiter},
		&DatabaseQueryHandler{},
		&TransformHandler{},
		&ConditionHandler{},
		&AIRequestHandler{Client: client, Limiter: limiter},
	)
	return r
}

func (r *Registry) register(hs ...Handler) {
	for _, h := range hs {
		if _, dup := r.handlers[h.Type()]; dup {
			panic(fmt.Sprintf("nodes: duplicate handler for %s", h.Type()))
		}
		r.handlers[h.Type()] = h
	}
}

// Handler returns the handler for a node type.
func (r *Registry) Handler(t api.NodeType) (Handler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

// stringField reads a string out of resolved node data, tolerating typed
// template results (numbers stringify).
func stringField(data map[string]any, key string) string {
	v, ok := data[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func intField(data map[string]any, key string, def int) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// wait blocks on the egress limiter, if one is configured.
func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}
