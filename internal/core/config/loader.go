package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/slotmon/internal/syncer"
)

// Load reads configuration from a YAML file. Environment variables in the
// file body (${VAR}) are expanded before parsing, so secrets like the RPC
// API key can stay in the environment. Missing required settings are
// errors: configuration problems are fatal at startup, never later.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.RPC.URL == "" {
		return nil, fmt.Errorf("rpc.url is required")
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Monitor.IntervalMs == 0 {
		cfg.Monitor.IntervalMs = 5000
	}
	if cfg.Monitor.Depth == 0 {
		cfg.Monitor.Depth = 5000
	}
	if cfg.Monitor.Workers == 0 {
		cfg.Monitor.Workers = syncer.DefaultWorkers
	}

	return &cfg, nil
}
