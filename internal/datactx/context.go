// Package datactx accumulates per-node outputs during a run and resolves
// templated node configuration against them.
//
// A Context is owned by exactly one execution goroutine. It maps a source
// key — "trigger", or a node id — to that source's realized output, grows
// monotonically while the run progresses, and is discarded when the run
// ends (it is reconstructible from the step logs).
package datactx

import (
	"strings"
	"time"

	"github.com/weftlabs/weft/pkg/api"
)

// TriggerKey is the context key holding the normalized trigger payload.
const TriggerKey = "trigger"

// Redacted replaces sensitive header values before storage or logging.
const Redacted = "[REDACTED]"

var sensitiveHeaders = map[string]struct{}{
	"authorization": {},
	"cookie":        {},
	"set-cookie":    {},
	"x-api-key":     {},
	"x-auth-token":  {},
}

// Context is the run-scoped source-key → output mapping.
type Context struct {
	values map[string]any
	vars   map[string]any
}

// New creates a Context seeded with the normalized trigger payload and the
// workflow's static variables.
func New(event api.TriggerEvent, vars map[string]any) *Context {
	c := &Context{
		values: make(map[string]any, 8),
		vars:   vars,
	}
	c.values[TriggerKey] = NormalizeTrigger(event)
	return c
}

// Rehydrate builds a Context around an already-normalized trigger payload.
// Run seeds it with the map persisted as the execution input, so templates
// resolve against exactly that payload; Resume uses it together with the
// step logs to reconstruct the run's data.
func Rehydrate(trigger any, vars map[string]any) *Context {
	c := &Context{
		values: make(map[string]any, 8),
		vars:   vars,
	}
	c.values[TriggerKey] = trigger
	return c
}

// NormalizeTrigger shapes a trigger event into the canonical
// {body, headers, query, method, timestamp} form, redacting sensitive
// headers case-insensitively.
func NormalizeTrigger(event api.TriggerEvent) map[string]any {
	headers := make(map[string]any, len(event.Headers))
	for k, v := range event.Headers {
		if _, sensitive := sensitiveHeaders[strings.ToLower(k)]; sensitive {
			headers[k] = Redacted
			continue
		}
		headers[k] = v
	}
	query := make(map[string]any, len(event.Query))
	for k, v := range event.Query {
		query[k] = v
	}
	return map[string]any{
		"body":      event.Body,
		"headers":   headers,
		"query":     query,
		"method":    event.Method,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
}

// Set records a node's realized output under its id.
func (c *Context) Set(nodeID string, output any) {
	c.values[nodeID] = output
}

// Get returns the output recorded for a source key.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Vars returns the workflow's static variables.
func (c *Context) Vars() map[string]any { return c.vars }

// Snapshot returns a shallow copy of the source mapping for handing to the
// sandboxed expression environment.
func (c *Context) Snapshot() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}
