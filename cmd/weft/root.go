package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/weftlabs/weft"
	"github.com/weftlabs/weft/internal/logging"
	"github.com/weftlabs/weft/pkg/api"
)

var (
	workflowsDir string
	logLevel     string
	dbPath       string
)

var rootCmd = &cobra.Command{
	Use:           "weft",
	Short:         "Weft — workflow automation engine",
	Long:          "Runs workflows defined as YAML node graphs: webhook triggers, HTTP calls, emails, database queries, transforms and conditions.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&workflowsDir, "workflows-dir", "./workflows", "directory containing workflow YAML files")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path; empty runs in-memory")
}

func Execute() error {
	return rootCmd.Execute()
}

// buildEngine assembles an engine over the configured store, seeded with
// the given definitions. An empty db path means in-memory.
func buildEngine(em weft.Emitter, defs map[string]api.WorkflowDefinition, db string) (weft.Engine, error) {
	flat := make([]weft.WorkflowDefinition, 0, len(defs))
	for _, def := range defs {
		flat = append(flat, def)
	}

	if db == "" {
		return weft.NewInMemoryEngineWithEmitter(em, flat...), nil
	}

	conn, err := sql.Open("sqlite", db)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", db, err)
	}
	return weft.NewSQLiteEngineWithEmitter(conn, em, flat...)
}

func newLogger(level string) *slog.Logger { return logging.New(level) }
