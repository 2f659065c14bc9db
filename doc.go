// Package weft provides a lightweight, embeddable workflow automation
// engine for Go.
//
// Weft executes workflows defined as directed graphs of typed nodes —
// HTTP calls, emails, Telegram messages, database queries, data
// transforms, conditions, AI requests — wired together by edges and fed
// by a trigger (webhook, schedule, or inbound email). It runs fully in
// Go, supports multiple persistence backends, and integrates cleanly into
// existing codebases.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. Engine
//  2. WorkflowDefinition
//  3. FlowBuilder
//  4. Emitter
//
// # Engine
//
// The Engine loads workflow definitions, runs them against a trigger
// event, persists execution state and per-node step logs, and provides
// APIs to:
//   - run workflows
//   - cancel in-flight runs at node boundaries
//   - resume paused runs
//   - read execution state and step history
//
// Engines can be backed by different storage systems:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability)
//   - Postgres
//   - Redis
//
// A run is synchronous: Run returns the finished execution record. Node
// failures never surface as Go errors from Run — they land in the
// execution's status and step logs. Only startup problems (unknown
// workflow, malformed graph, store failure) return an error.
//
// # WorkflowDefinition
//
// A workflow is a set of typed nodes plus the edges connecting them.
// Exactly one node is the trigger. Node configuration may reference
// earlier outputs with {{source.path}} templates, the workflow's static
// variables with {{vars.key}}, and the trigger payload with
// {{trigger.body...}}.
//
// Definitions are plain data: build them in Go with FlowBuilder, decode
// them from YAML or JSON, or assemble them by hand.
//
// # FlowBuilder
//
// FlowBuilder provides the ergonomic, declarative API used to define
// workflows:
//
//	def := weft.NewFlow("signup-alerts").
//	    Trigger("hook", weft.NodeWebhookTrigger, map[string]any{"token": token}).
//	    Node("check", weft.NodeCondition, map[string]any{
//	        "expression": "input.body.plan == 'pro'",
//	    }).
//	    Node("notify", weft.NodeSendTelegram, map[string]any{
//	        "chatId": "{{vars.chatId}}",
//	        "text":   "pro signup: {{trigger.body.email}}",
//	    }).
//	    Edge("hook", "check").
//	    Branch("check", "true", "notify").
//	    MustBuild()
//
// # Emitter
//
// An Emitter observes execution progress: run start, step start, step
// completion, run completion. Events fire only after the corresponding
// state has been durably recorded, so an event consumer never sees a step
// the store cannot yet confirm. LoggingEmitter, BasicMetrics and the
// Redis pub/sub emitter ship in the box; CompositeEmitter fans out to
// several.
//
// # Summary
//
// Weft's goal is a workflow engine that feels like Go: easy to embed,
// easy to test, deterministic, and without operational overhead. Engines
// manage execution state, definitions describe the graph, FlowBuilder
// defines workflows ergonomically, and Emitters provide observability.
//
// Runnable programs live in the /examples directory.
package weft
