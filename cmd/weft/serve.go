package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/weftlabs/weft"
	"github.com/weftlabs/weft/internal/loader"
	"github.com/weftlabs/weft/internal/server"
	"github.com/weftlabs/weft/pkg/api"
)

var (
	configPath string
	serveAddr  string
	redisAddr  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook delivery server",
	Long:  "Serves webhook triggers over HTTP. Configuration comes from --config (YAML), overridden by WEFT_* environment variables, overridden by flags.",
	Args:  cobra.NoArgs,
	RunE:  serveWebhooks,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "server configuration file (YAML)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "address to listen on")
	serveCmd.Flags().StringVar(&redisAddr, "redis-addr", "", "publish execution events to this Redis instance")
	rootCmd.AddCommand(serveCmd)
}

// serveConfig resolves the effective configuration: file + env via
// loadServerConfig, then any flag the caller set explicitly wins.
func serveConfig(cmd *cobra.Command) (serverConfig, error) {
	cfg, err := loadServerConfig(configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = serveAddr
	}
	if flags.Changed("redis-addr") {
		cfg.RedisAddr = redisAddr
	}
	if flags.Changed("workflows-dir") {
		cfg.WorkflowsDir = workflowsDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("db") {
		cfg.DB = dbPath
	}
	return cfg, nil
}

func serveWebhooks(cmd *cobra.Command, args []string) error {
	cfg, err := serveConfig(cmd)
	if err != nil {
		return err
	}

	defs, err := loader.LoadWorkflows(cfg.WorkflowsDir)
	if err != nil {
		return fmt.Errorf("loading workflows: %w", err)
	}

	logger := newLogger(cfg.LogLevel)

	em := weft.NewLoggingEmitter(logger)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		em = weft.NewCompositeEmitter(em, weft.NewRedisEmitter(client, "", logger))
	}

	eng, err := buildEngine(em, defs, cfg.DB)
	if err != nil {
		return err
	}

	srv := server.New(eng, defs, logger)
	srv.UseDispatcher(weft.NewDispatcher(eng, 8, logger))
	fmt.Printf("Listening on %s\n", cfg.Addr)
	fmt.Printf("Loaded %d workflow(s)\n", len(defs))
	for id, def := range defs {
		trigger, ok := def.TriggerNode()
		if !ok || trigger.Type != api.NodeWebhookTrigger {
			continue
		}
		if token, _ := trigger.Data["token"].(string); token != "" {
			fmt.Printf("  POST /webhooks/%s -> %s\n", token, id)
		}
	}
	return srv.ListenAndServe(cfg.Addr)
}
