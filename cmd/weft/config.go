package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// serverConfig is the serve command's configuration. Precedence, lowest to
// highest: built-in defaults, the --config YAML file, WEFT_* environment
// variables, explicit command-line flags.
type serverConfig struct {
	Addr         string `yaml:"addr"`
	RedisAddr    string `yaml:"redisAddr"`
	WorkflowsDir string `yaml:"workflowsDir"`
	LogLevel     string `yaml:"logLevel"`
	DB           string `yaml:"db"`
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		Addr:         ":8080",
		WorkflowsDir: "./workflows",
		LogLevel:     "info",
	}
}

// loadServerConfig reads the YAML file at path (skipped when path is empty)
// over the defaults, then applies environment overrides.
func loadServerConfig(path string) (serverConfig, error) {
	cfg := defaultServerConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg.Addr, "WEFT_ADDR")
	applyEnv(&cfg.RedisAddr, "WEFT_REDIS_ADDR")
	applyEnv(&cfg.WorkflowsDir, "WEFT_WORKFLOWS_DIR")
	applyEnv(&cfg.LogLevel, "WEFT_LOG_LEVEL")
	applyEnv(&cfg.DB, "WEFT_DB")

	return cfg, nil
}

func applyEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}
