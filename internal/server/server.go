// Package server is the webhook delivery surface: it terminates inbound
// HTTP triggers, verifies signatures, normalizes requests into trigger
// events and hands them to the engine. The engine itself never sees HTTP.
package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/weftlabs/weft/internal/webhookid"
	"github.com/weftlabs/weft/pkg/api"
)

// SignatureHeader carries the HMAC of the raw request body.
const SignatureHeader = "X-Weft-Signature"

type webhookRoute struct {
	workflowID string
	secret     string
}

// Dispatcher schedules asynchronous runs. When the Server has one, webhook
// deliveries go through it instead of a bare goroutine, so concurrency
// stays bounded under bursts.
type Dispatcher interface {
	Submit(ctx context.Context, workflowID string, event api.TriggerEvent) error
}

// Server routes webhook tokens to workflows.
type Server struct {
	engine api.Engine
	logger *slog.Logger
	routes map[string]webhookRoute
	disp   Dispatcher
}

// New builds a Server for the given workflow definitions. Each
// webhook-trigger node's data supplies the route: "token" (required to be
// routable) and optional "secret" for signature verification.
func New(eng api.Engine, defs map[string]api.WorkflowDefinition, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	routes := make(map[string]webhookRoute)
	for id, def := range defs {
		trigger, ok := def.TriggerNode()
		if !ok || trigger.Type != api.NodeWebhookTrigger {
			continue
		}
		token, _ := trigger.Data["token"].(string)
		if !webhookid.ValidToken(token) {
			logger.Warn("workflow has no routable webhook token", slog.String("workflow_id", id))
			continue
		}
		secret, _ := trigger.Data["secret"].(string)
		routes[token] = webhookRoute{workflowID: id, secret: secret}
	}
	return &Server{engine: eng, logger: logger, routes: routes}
}

// UseDispatcher routes asynchronous webhook runs through d.
func (s *Server) UseDispatcher(d Dispatcher) { s.disp = d }

// Router builds the gin handler tree.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/webhooks/:token", s.handleWebhook)
	r.GET("/executions/:id", s.handleGetExecution)
	r.GET("/executions/:id/steps", s.handleGetSteps)

	return r
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	return s.Router().Run(addr)
}

func (s *Server) handleWebhook(c *gin.Context) {
	token := c.Param("token")
	route, ok := s.routes[token]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown webhook token"})
		return
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 10<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	// Signature verification happens before the engine is involved; the
	// engine's trigger contract assumes it already passed.
	if route.secret != "" {
		sig := c.GetHeader(SignatureHeader)
		if !webhookid.Verify(raw, sig, route.secret) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	}

	var body any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			body = string(raw)
		}
	}

	headers := make(map[string]string, len(c.Request.Header))
	for k, v := range c.Request.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	query := make(map[string]string)
	for k, v := range c.Request.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	event := api.TriggerEvent{
		WorkflowID: route.workflowID,
		Body:       body,
		Headers:    headers,
		Query:      query,
		Method:     c.Request.Method,
	}

	if c.Query("sync") == "1" {
		exec, err := s.engine.Run(c.Request.Context(), route.workflowID, event)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(statusCodeFor(exec.Status), exec)
		return
	}

	// Fire-and-forget: the run outlives the HTTP request.
	if s.disp != nil {
		if err := s.disp.Submit(c.Request.Context(), route.workflowID, event); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
	} else {
		go func() {
			if _, err := s.engine.Run(context.Background(), route.workflowID, event); err != nil {
				s.logger.Error("webhook run failed to start",
					slog.String("workflow_id", route.workflowID),
					slog.String("error", err.Error()),
				)
			}
		}()
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "workflowId": route.workflowID})
}

func (s *Server) handleGetExecution(c *gin.Context) {
	exec, err := s.engine.GetExecution(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, exec)
}

func (s *Server) handleGetSteps(c *gin.Context) {
	logs, err := s.engine.StepLogs(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, logs)
}

func statusCodeFor(status api.Status) int {
	if status == api.StatusFailed {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}
