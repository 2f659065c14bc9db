package engine

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/weftlabs/weft/internal/nodes"
	"github.com/weftlabs/weft/internal/persistence"
	"github.com/weftlabs/weft/pkg/api"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

// recEmitter records every event in arrival order. The optional hooks fire
// synchronously from inside the engine, which lets tests cancel a run at a
// precise point.
type recEmitter struct {
	mu     sync.Mutex
	events []string
	steps  []api.StepEvent

	onStart func(executionID string)
}

func (r *recEmitter) record(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recEmitter) OnExecutionStart(ctx context.Context, executionID, workflowID string) {
	r.record("exec.start")
	if r.onStart != nil {
		r.onStart(executionID)
	}
}

func (r *recEmitter) OnStepStart(ctx context.Context, executionID, nodeID, nodeName string) {
	r.record("step.start:" + nodeID)
}

func (r *recEmitter) OnStepComplete(ctx context.Context, ev api.StepEvent) {
	r.mu.Lock()
	r.steps = append(r.steps, ev)
	r.mu.Unlock()
	r.record("step.complete:" + ev.NodeID)
}

func (r *recEmitter) OnExecutionComplete(ctx context.Context, ev api.ExecutionEvent) {
	r.record("exec.complete")
}

// opStore wraps the memory store and appends every durable write into the
// same sequence the emitter records into, so ordering between persistence
// and events is observable.
type opStore struct {
	*persistence.MemoryStore
	rec *recEmitter
}

func (s *opStore) AppendStepLog(ctx context.Context, log *api.StepLog) error {
	s.rec.record("persist.step:" + log.NodeID)
	return s.MemoryStore.AppendStepLog(ctx, log)
}

func (s *opStore) UpdateExecution(ctx context.Context, exec *api.Execution) error {
	s.rec.record("persist.exec:" + string(exec.Status))
	return s.MemoryStore.UpdateExecution(ctx, exec)
}

type testEnv struct {
	engine *Engine
	store  *persistence.MemoryStore
	rec    *recEmitter
	sleeps []time.Duration
}

func newTestEnv(t *testing.T, def api.WorkflowDefinition, transport roundTripFunc) *testEnv {
	t.Helper()
	env := &testEnv{
		store: persistence.NewMemoryStore(),
		rec:   &recEmitter{},
	}
	env.store.PutWorkflow(def)

	client := &http.Client{}
	if transport != nil {
		client.Transport = transport
	}

	env.engine = New(Config{
		Workflows:  env.store,
		Executions: &opStore{MemoryStore: env.store, rec: env.rec},
		Emitter:    env.rec,
		Nodes:      nodes.NewRegistry(nodes.Config{HTTPClient: client}),
		sleep: func(ctx context.Context, d time.Duration) error {
			env.sleeps = append(env.sleeps, d)
			return nil
		},
	})
	return env
}

func triggerEvent(workflowID string, body map[string]any) api.TriggerEvent {
	return api.TriggerEvent{WorkflowID: workflowID, Body: body, Method: "POST"}
}

func linearHTTPDef() api.WorkflowDefinition {
	return api.WorkflowDefinition{
		ID:   "orders",
		Name: "orders",
		Nodes: []api.Node{
			{ID: "hook", Type: api.NodeWebhookTrigger, Name: "hook"},
			{ID: "fetch", Type: api.NodeHTTPRequest, Name: "fetch", Data: map[string]any{
				"url": "https://api.example.com/orders/{{trigger.body.orderId}}",
			}},
			{ID: "shape", Type: api.NodeTransform, Name: "shape", Data: map[string]any{
				"expression": `{"status": input.statusCode}`,
			}},
		},
		Edges: []api.Edge{
			{Source: "hook", Target: "fetch"},
			{Source: "fetch", Target: "shape"},
		},
	}
}

func stepByNode(t *testing.T, logs []*api.StepLog, nodeID string) *api.StepLog {
	t.Helper()
	for _, l := range logs {
		if l.NodeID == nodeID {
			return l
		}
	}
	t.Fatalf("no step log for node %s", nodeID)
	return nil
}

func TestRun_LinearSuccess(t *testing.T) {
	var seenURL string
	def := linearHTTPDef()
	env := newTestEnv(t, def, func(r *http.Request) (*http.Response, error) {
		seenURL = r.URL.String()
		return jsonResponse(200, `{"id": 42}`), nil
	})

	exec, err := env.engine.Run(context.Background(), "orders", triggerEvent("orders", map[string]any{"orderId": float64(42)}))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if exec.Status != api.StatusSuccess {
		t.Fatalf("status = %s, error = %s", exec.Status, exec.Error)
	}
	if exec.FinishedAt == nil {
		t.Fatal("FinishedAt not set")
	}
	if seenURL != "https://api.example.com/orders/42" {
		t.Fatalf("template not resolved: %s", seenURL)
	}
	if exec.Output.(map[string]any)["status"] != 200 {
		t.Fatalf("output = %v", exec.Output)
	}

	// The normalized trigger payload is the execution input.
	input := exec.Input.(map[string]any)
	if input["method"] != "POST" {
		t.Fatalf("input = %v", input)
	}

	logs, err := env.engine.StepLogs(context.Background(), exec.ID)
	if err != nil {
		t.Fatalf("step logs: %v", err)
	}
	if len(logs) != 2 || logs[0].NodeID != "fetch" || logs[1].NodeID != "shape" {
		t.Fatalf("unexpected step logs: %v", logs)
	}
	if logs[0].Status != api.StepSuccess || logs[1].Status != api.StepSuccess {
		t.Fatalf("step statuses: %s %s", logs[0].Status, logs[1].Status)
	}
	// The step input is the resolved node configuration.
	if logs[0].Input.(map[string]any)["url"] != "https://api.example.com/orders/42" {
		t.Fatalf("step input = %v", logs[0].Input)
	}

	stored, err := env.engine.GetExecution(context.Background(), exec.ID)
	if err != nil {
		t.Fatalf("get execution: %v", err)
	}
	if stored.Status != api.StatusSuccess {
		t.Fatalf("stored status = %s", stored.Status)
	}
}

// Every event must fire only after the matching state is durably written.
func TestRun_EventsFollowPersistence(t *testing.T) {
	env := newTestEnv(t, linearHTTPDef(), func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{}`), nil
	})

	_, err := env.engine.Run(context.Background(), "orders", triggerEvent("orders", nil))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	want := []string{
		"persist.exec:RUNNING",
		"exec.start",
		"step.start:fetch",
		"persist.step:fetch",
		"step.complete:fetch",
		"step.start:shape",
		"persist.step:shape",
		"step.complete:shape",
		"persist.exec:SUCCESS",
		"exec.complete",
	}
	if len(env.rec.events) != len(want) {
		t.Fatalf("events = %v", env.rec.events)
	}
	for i, w := range want {
		if env.rec.events[i] != w {
			t.Fatalf("event[%d] = %s, want %s (all: %v)", i, env.rec.events[i], w, env.rec.events)
		}
	}
}

func TestRun_UnknownWorkflow(t *testing.T) {
	env := newTestEnv(t, linearHTTPDef(), nil)
	_, err := env.engine.Run(context.Background(), "ghost", triggerEvent("ghost", nil))
	if err == nil || !strings.Contains(err.Error(), "unknown workflow") {
		t.Fatalf("err = %v", err)
	}
}

// Structural problems fail before any execution record exists.
func TestRun_InvalidGraphNeverStarts(t *testing.T) {
	def := linearHTTPDef()
	def.Edges = append(def.Edges, api.Edge{Source: "shape", Target: "fetch"}) // cycle
	env := newTestEnv(t, def, nil)

	_, err := env.engine.Run(context.Background(), "orders", triggerEvent("orders", nil))
	if err == nil {
		t.Fatal("expected structural error")
	}
	execs, _ := env.engine.ListExecutions(context.Background(), api.ExecutionFilter{})
	if len(execs) != 0 {
		t.Fatalf("execution record created for invalid graph: %v", execs)
	}
}

// A blocked URL fails the step immediately: no network, no retries even
// when a retry policy is configured.
func TestRun_BlockedURLFailsWithoutRetry(t *testing.T) {
	dialed := false
	def := api.WorkflowDefinition{
		ID: "ssrf",
		Nodes: []api.Node{
			{ID: "hook", Type: api.NodeWebhookTrigger, Name: "hook"},
			{ID: "fetch", Type: api.NodeHTTPRequest, Name: "fetch",
				Data:  map[string]any{"url": "http://169.254.169.254/latest/meta-data/"},
				Retry: &api.RetryConfig{MaxAttempts: 3, InitialDelayMs: 10},
			},
		},
		Edges: []api.Edge{{Source: "hook", Target: "fetch"}},
	}
	env := newTestEnv(t, def, func(r *http.Request) (*http.Response, error) {
		dialed = true
		return jsonResponse(200, `{}`), nil
	})

	exec, err := env.engine.Run(context.Background(), "ssrf", triggerEvent("ssrf", nil))
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if exec.Status != api.StatusFailed {
		t.Fatalf("status = %s", exec.Status)
	}
	if !strings.Contains(exec.Error, "blocked url") {
		t.Fatalf("error = %q", exec.Error)
	}
	if dialed {
		t.Fatal("network was reached for blocked url")
	}
	if len(env.sleeps) != 0 {
		t.Fatalf("retries attempted: %v", env.sleeps)
	}

	logs, _ := env.engine.StepLogs(context.Background(), exec.ID)
	log := stepByNode(t, logs, "fetch")
	if log.Status != api.StepError || !strings.Contains(log.Error, "blocked url") {
		t.Fatalf("step log = %+v", log)
	}
}

// maxAttempts is the total attempt budget: 3 attempts, 2 sleeps, and the
// final step event reports 2 retries.
func TestRun_RetryExhaustion(t *testing.T) {
	attempts := 0
	def := api.WorkflowDefinition{
		ID: "flaky",
		Nodes: []api.Node{
			{ID: "hook", Type: api.NodeWebhookTrigger, Name: "hook"},
			{ID: "fetch", Type: api.NodeHTTPRequest, Name: "fetch",
				Data: map[string]any{"url": "https://api.example.com/x"},
				Retry: &api.RetryConfig{
					MaxAttempts:       3,
					InitialDelayMs:    10,
					BackoffMultiplier: 2.0,
					MaxDelayMs:        1000,
				},
			},
		},
		Edges: []api.Edge{{Source: "hook", Target: "fetch"}},
	}
	env := newTestEnv(t, def, func(r *http.Request) (*http.Response, error) {
		attempts++
		return jsonResponse(503, `{"error":"overloaded"}`), nil
	})

	exec, err := env.engine.Run(context.Background(), "flaky", triggerEvent("flaky", nil))
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if exec.Status != api.StatusFailed {
		t.Fatalf("status = %s", exec.Status)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
	if len(env.sleeps) != 2 || env.sleeps[0] != 10*time.Millisecond || env.sleeps[1] != 20*time.Millisecond {
		t.Fatalf("sleeps = %v", env.sleeps)
	}

	var fetchEvent *api.StepEvent
	for i := range env.rec.steps {
		if env.rec.steps[i].NodeID == "fetch" {
			fetchEvent = &env.rec.steps[i]
		}
	}
	if fetchEvent == nil || fetchEvent.RetryAttempts != 2 {
		t.Fatalf("step event = %+v", fetchEvent)
	}

	// Only the final attempt is logged.
	logs, _ := env.engine.StepLogs(context.Background(), exec.ID)
	if len(logs) != 1 || logs[0].Status != api.StepError {
		t.Fatalf("logs = %v", logs)
	}
}

// Templates resolve against the same normalized payload that is persisted
// as the execution input, timestamp included.
func TestRun_TemplatesSeePersistedTriggerPayload(t *testing.T) {
	def := api.WorkflowDefinition{
		ID: "wf",
		Nodes: []api.Node{
			{ID: "hook", Type: api.NodeWebhookTrigger, Name: "hook"},
			{ID: "stamp", Type: api.NodeTransform, Name: "stamp", Data: map[string]any{
				"expression": "ctx.trigger.timestamp",
			}},
		},
		Edges: []api.Edge{{Source: "hook", Target: "stamp"}},
	}
	env := newTestEnv(t, def, nil)

	exec, err := env.engine.Run(context.Background(), "wf", triggerEvent("wf", nil))
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if exec.Status != api.StatusSuccess {
		t.Fatalf("status = %s, error = %s", exec.Status, exec.Error)
	}

	want := exec.Input.(map[string]any)["timestamp"]
	if exec.Output != want {
		t.Fatalf("template saw timestamp %v, persisted input has %v", exec.Output, want)
	}
}

// A deterministic failure after transient ones stops the retry loop and
// still reports the retries that were spent.
func TestRun_LateNonRetryableStopsRetrying(t *testing.T) {
	attempts := 0
	def := api.WorkflowDefinition{
		ID: "wf",
		Nodes: []api.Node{
			{ID: "hook", Type: api.NodeWebhookTrigger, Name: "hook"},
			{ID: "fetch", Type: api.NodeHTTPRequest, Name: "fetch",
				Data:  map[string]any{"url": "https://api.example.com/x"},
				Retry: &api.RetryConfig{MaxAttempts: 5, InitialDelayMs: 10},
			},
		},
		Edges: []api.Edge{{Source: "hook", Target: "fetch"}},
	}
	env := newTestEnv(t, def, func(r *http.Request) (*http.Response, error) {
		attempts++
		if attempts == 1 {
			return jsonResponse(503, `{}`), nil
		}
		return nil, &api.SecurityError{URL: r.URL.String(), Reason: "resolved to a private address"}
	})

	exec, err := env.engine.Run(context.Background(), "wf", triggerEvent("wf", nil))
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if exec.Status != api.StatusFailed {
		t.Fatalf("status = %s", exec.Status)
	}
	if attempts != 2 || len(env.sleeps) != 1 {
		t.Fatalf("attempts = %d, sleeps = %v", attempts, env.sleeps)
	}
	if env.rec.steps[0].RetryAttempts != 1 {
		t.Fatalf("retryAttempts = %d, want 1", env.rec.steps[0].RetryAttempts)
	}
	if !strings.Contains(exec.Error, "blocked url") {
		t.Fatalf("error = %q", exec.Error)
	}
}

func TestRun_RetrySucceedsOnSecondAttempt(t *testing.T) {
	attempts := 0
	def := api.WorkflowDefinition{
		ID: "flaky",
		Nodes: []api.Node{
			{ID: "hook", Type: api.NodeWebhookTrigger, Name: "hook"},
			{ID: "fetch", Type: api.NodeHTTPRequest, Name: "fetch",
				Data:  map[string]any{"url": "https://api.example.com/x"},
				Retry: &api.RetryConfig{MaxAttempts: 3, InitialDelayMs: 10},
			},
		},
		Edges: []api.Edge{{Source: "hook", Target: "fetch"}},
	}
	env := newTestEnv(t, def, func(r *http.Request) (*http.Response, error) {
		attempts++
		if attempts == 1 {
			return jsonResponse(503, `{}`), nil
		}
		return jsonResponse(200, `{"ok":true}`), nil
	})

	exec, err := env.engine.Run(context.Background(), "flaky", triggerEvent("flaky", nil))
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if exec.Status != api.StatusSuccess {
		t.Fatalf("status = %s, error = %s", exec.Status, exec.Error)
	}
	if attempts != 2 || len(env.sleeps) != 1 {
		t.Fatalf("attempts = %d, sleeps = %v", attempts, env.sleeps)
	}
	if env.rec.steps[0].RetryAttempts != 1 {
		t.Fatalf("retryAttempts = %d", env.rec.steps[0].RetryAttempts)
	}
}

// An unresolved required field is a validation failure: no retry, run fails.
func TestRun_UnresolvedRequiredField(t *testing.T) {
	def := api.WorkflowDefinition{
		ID: "wf",
		Nodes: []api.Node{
			{ID: "hook", Type: api.NodeWebhookTrigger, Name: "hook"},
			{ID: "fetch", Type: api.NodeHTTPRequest, Name: "fetch",
				Data:  map[string]any{"url": "{{trigger.body.url}}"},
				Retry: &api.RetryConfig{MaxAttempts: 5, InitialDelayMs: 1},
			},
		},
		Edges: []api.Edge{{Source: "hook", Target: "fetch"}},
	}
	env := newTestEnv(t, def, nil)

	exec, err := env.engine.Run(context.Background(), "wf", triggerEvent("wf", nil))
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if exec.Status != api.StatusFailed {
		t.Fatalf("status = %s", exec.Status)
	}
	if len(env.sleeps) != 0 {
		t.Fatalf("validation failure was retried: %v", env.sleeps)
	}
	if !strings.Contains(exec.Error, "required field is unresolved") {
		t.Fatalf("error = %q", exec.Error)
	}
}

func conditionDef(threshold float64) api.WorkflowDefinition {
	return api.WorkflowDefinition{
		ID: "route",
		Nodes: []api.Node{
			{ID: "hook", Type: api.NodeWebhookTrigger, Name: "hook"},
			{ID: "check", Type: api.NodeCondition, Name: "check", Data: map[string]any{
				"expression": "input.body.amount > vars.threshold",
			}},
			{ID: "big", Type: api.NodeTransform, Name: "big", Data: map[string]any{
				"expression": `"big order"`,
			}},
			{ID: "small", Type: api.NodeTransform, Name: "small", Data: map[string]any{
				"expression": `"small order"`,
			}},
			{ID: "wrap", Type: api.NodeTransform, Name: "wrap", Data: map[string]any{
				"expression": `{"label": input}`,
			}},
		},
		Edges: []api.Edge{
			{Source: "hook", Target: "check"},
			{Source: "check", Target: "big", SourceHandle: "true"},
			{Source: "check", Target: "small", SourceHandle: "false"},
			{Source: "big", Target: "wrap"},
			{Source: "small", Target: "wrap"},
		},
		Variables: map[string]any{"threshold": threshold},
	}
}

// The not-taken branch is logged as skipped; the merge node downstream of
// both branches still runs.
func TestRun_ConditionBranching(t *testing.T) {
	env := newTestEnv(t, conditionDef(100), nil)

	exec, err := env.engine.Run(context.Background(), "route",
		triggerEvent("route", map[string]any{"amount": float64(250)}))
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if exec.Status != api.StatusSuccess {
		t.Fatalf("status = %s, error = %s", exec.Status, exec.Error)
	}

	logs, _ := env.engine.StepLogs(context.Background(), exec.ID)
	if len(logs) != 4 {
		t.Fatalf("expected 4 step logs, got %v", logs)
	}
	if stepByNode(t, logs, "check").Status != api.StepSuccess {
		t.Fatal("condition not logged as success")
	}
	if stepByNode(t, logs, "big").Status != api.StepSuccess {
		t.Fatal("taken branch not executed")
	}
	if stepByNode(t, logs, "small").Status != api.StepSkipped {
		t.Fatal("not-taken branch not logged as skipped")
	}
	if stepByNode(t, logs, "wrap").Status != api.StepSuccess {
		t.Fatal("merge node did not run")
	}
	if exec.Output.(map[string]any)["label"] != "big order" {
		t.Fatalf("output = %v", exec.Output)
	}
}

func TestRun_ConditionFalseBranch(t *testing.T) {
	env := newTestEnv(t, conditionDef(100), nil)

	exec, err := env.engine.Run(context.Background(), "route",
		triggerEvent("route", map[string]any{"amount": float64(7)}))
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	logs, _ := env.engine.StepLogs(context.Background(), exec.ID)
	if stepByNode(t, logs, "big").Status != api.StepSkipped {
		t.Fatal("true branch should be skipped")
	}
	if stepByNode(t, logs, "small").Status != api.StepSuccess {
		t.Fatal("false branch should run")
	}
	// Traversal order visits the merge node before "small", so the last
	// executed node (and the execution output) is the branch node itself.
	if exec.Output != "small order" {
		t.Fatalf("output = %v", exec.Output)
	}
}

// A non-fatal node's failure is logged but the run completes.
func TestRun_ContinueOnFail(t *testing.T) {
	def := api.WorkflowDefinition{
		ID: "wf",
		Nodes: []api.Node{
			{ID: "hook", Type: api.NodeWebhookTrigger, Name: "hook"},
			{ID: "notify", Type: api.NodeHTTPRequest, Name: "notify",
				Data:           map[string]any{"url": "https://hooks.example.com/x"},
				ContinueOnFail: true,
			},
			{ID: "shape", Type: api.NodeTransform, Name: "shape", Data: map[string]any{
				"expression": `"done"`,
			}},
		},
		Edges: []api.Edge{
			{Source: "hook", Target: "notify"},
			{Source: "notify", Target: "shape"},
		},
	}
	env := newTestEnv(t, def, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(500, `{}`), nil
	})

	exec, err := env.engine.Run(context.Background(), "wf", triggerEvent("wf", nil))
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if exec.Status != api.StatusSuccess {
		t.Fatalf("status = %s, error = %s", exec.Status, exec.Error)
	}

	logs, _ := env.engine.StepLogs(context.Background(), exec.ID)
	if stepByNode(t, logs, "notify").Status != api.StepError {
		t.Fatal("failed step not logged as error")
	}
	if stepByNode(t, logs, "shape").Status != api.StepSuccess {
		t.Fatal("run did not continue past non-fatal failure")
	}
}

func TestCancelAndResume(t *testing.T) {
	def := api.WorkflowDefinition{
		ID: "long",
		Nodes: []api.Node{
			{ID: "hook", Type: api.NodeWebhookTrigger, Name: "hook"},
			{ID: "first", Type: api.NodeHTTPRequest, Name: "first", Data: map[string]any{
				"url": "https://api.example.com/first",
			}},
			{ID: "second", Type: api.NodeHTTPRequest, Name: "second", Data: map[string]any{
				"url": "https://api.example.com/second/{{first.body.token}}",
			}},
		},
		Edges: []api.Edge{
			{Source: "hook", Target: "first"},
			{Source: "first", Target: "second"},
		},
	}

	var execID string
	secondCalls := 0
	env := newTestEnv(t, def, nil)
	env.rec.onStart = func(id string) { execID = id }

	// The first node cancels its own run mid-flight; the pause takes
	// effect at the next node boundary.
	env.engine.registry = nodes.NewRegistry(nodes.Config{HTTPClient: &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if strings.Contains(r.URL.Path, "first") {
				if err := env.engine.Cancel(execID); err != nil {
					t.Errorf("cancel failed: %v", err)
				}
				return jsonResponse(200, `{"token":"tok-1"}`), nil
			}
			secondCalls++
			return jsonResponse(200, `{"done":true}`), nil
		}),
	}})

	exec, err := env.engine.Run(context.Background(), "long", triggerEvent("long", nil))
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if exec.Status != api.StatusPaused {
		t.Fatalf("status = %s", exec.Status)
	}
	if exec.FinishedAt != nil {
		t.Fatal("paused execution must not have FinishedAt")
	}
	if secondCalls != 0 {
		t.Fatal("second node ran despite cancellation")
	}

	logs, _ := env.engine.StepLogs(context.Background(), exec.ID)
	if len(logs) != 1 || logs[0].NodeID != "first" {
		t.Fatalf("logs = %v", logs)
	}

	resumed, err := env.engine.Resume(context.Background(), exec.ID)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if resumed.Status != api.StatusSuccess {
		t.Fatalf("resumed status = %s, error = %s", resumed.Status, resumed.Error)
	}
	if secondCalls != 1 {
		t.Fatalf("second node ran %d times", secondCalls)
	}

	// The resumed node saw the first node's recorded output via templating.
	logs, _ = env.engine.StepLogs(context.Background(), exec.ID)
	second := stepByNode(t, logs, "second")
	if second.Input.(map[string]any)["url"] != "https://api.example.com/second/tok-1" {
		t.Fatalf("resumed input = %v", second.Input)
	}

	// Completed nodes are not re-executed: still exactly one "first" log.
	count := 0
	for _, l := range logs {
		if l.NodeID == "first" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("first logged %d times", count)
	}
}

func TestResume_RejectsNonPaused(t *testing.T) {
	env := newTestEnv(t, linearHTTPDef(), func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{}`), nil
	})
	exec, err := env.engine.Run(context.Background(), "orders", triggerEvent("orders", nil))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, err := env.engine.Resume(context.Background(), exec.ID); err == nil {
		t.Fatal("resume of finished execution should fail")
	}
}

func TestCancel_UnknownExecution(t *testing.T) {
	env := newTestEnv(t, linearHTTPDef(), nil)
	if err := env.engine.Cancel("ghost"); err == nil {
		t.Fatal("cancel of unknown execution should fail")
	}
}
