// Package emitter provides event emitter implementations beyond the
// in-process ones in pkg/api. The Redis emitter bridges engine progress to
// external real-time transports (a websocket gateway, the editor UI)
// through pub/sub channels.
package emitter

import (
	"context"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/weftlabs/weft/pkg/api"
)

// RedisEmitter publishes execution and step events as JSON messages.
// Channels:
//
//	<prefix>events:execution      — execution start/complete
//	<prefix>events:<executionID>  — per-run step stream
//
// Publishing is best-effort: a failed publish is logged and dropped, never
// propagated into the run.
type RedisEmitter struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

var _ api.Emitter = (*RedisEmitter)(nil)

// NewRedisEmitter creates a RedisEmitter. prefix is optional ("weft:" by
// default); logger nil means slog.Default().
func NewRedisEmitter(client *redis.Client, prefix string, logger *slog.Logger) *RedisEmitter {
	if prefix == "" {
		prefix = "weft:"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisEmitter{client: client, prefix: prefix, logger: logger}
}

type wireEvent struct {
	Kind        string `json:"kind"`
	ExecutionID string `json:"executionId"`
	WorkflowID  string `json:"workflowId,omitempty"`
	NodeID      string `json:"nodeId,omitempty"`
	NodeName    string `json:"nodeName,omitempty"`
	Status      string `json:"status,omitempty"`
	Output      any    `json:"output,omitempty"`
	Error       string `json:"error,omitempty"`
	DurationMs  int64  `json:"durationMs,omitempty"`
	Retries     int    `json:"retryAttempts,omitempty"`
	At          string `json:"at"`
}

func (r *RedisEmitter) publish(ctx context.Context, channel string, ev wireEvent) {
	ev.At = time.Now().UTC().Format(time.RFC3339Nano)
	payload, err := json.Marshal(ev)
	if err != nil {
		r.logger.WarnContext(ctx, "emitter_encode_failed", slog.String("error", err.Error()))
		return
	}
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		r.logger.WarnContext(ctx, "emitter_publish_failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

func (r *RedisEmitter) execChannel() string              { return r.prefix + "events:execution" }
func (r *RedisEmitter) stepChannel(execID string) string { return r.prefix + "events:" + execID }

func (r *RedisEmitter) OnExecutionStart(ctx context.Context, executionID, workflowID string) {
	r.publish(ctx, r.execChannel(), wireEvent{
		Kind:        "execution.start",
		ExecutionID: executionID,
		WorkflowID:  workflowID,
	})
}

func (r *RedisEmitter) OnStepStart(ctx context.Context, executionID, nodeID, nodeName string) {
	r.publish(ctx, r.stepChannel(executionID), wireEvent{
		Kind:        "step.start",
		ExecutionID: executionID,
		NodeID:      nodeID,
		NodeName:    nodeName,
	})
}

func (r *RedisEmitter) OnStepComplete(ctx context.Context, ev api.StepEvent) {
	r.publish(ctx, r.stepChannel(ev.ExecutionID), wireEvent{
		Kind:        "step.complete",
		ExecutionID: ev.ExecutionID,
		NodeID:      ev.NodeID,
		NodeName:    ev.NodeName,
		Status:      string(ev.Status),
		Output:      ev.Output,
		Error:       ev.Error,
		DurationMs:  ev.Duration.Milliseconds(),
		Retries:     ev.RetryAttempts,
	})
}

func (r *RedisEmitter) OnExecutionComplete(ctx context.Context, ev api.ExecutionEvent) {
	r.publish(ctx, r.execChannel(), wireEvent{
		Kind:        "execution.complete",
		ExecutionID: ev.ExecutionID,
		WorkflowID:  ev.WorkflowID,
		Status:      string(ev.Status),
		Output:      ev.Output,
		Error:       ev.Error,
		DurationMs:  ev.TotalDuration.Milliseconds(),
	})
}
