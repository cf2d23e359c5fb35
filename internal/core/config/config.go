package config

import (
	"time"

	redisclient "github.com/vietddude/slotmon/internal/infra/redis"
	"github.com/vietddude/slotmon/internal/infra/rpc"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server  ServerConfig       `yaml:"server"`
	RPC     rpc.Config         `yaml:"rpc"`
	Monitor MonitorConfig      `yaml:"monitor"`
	Redis   redisclient.Config `yaml:"redis"`
	Logging LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// MonitorConfig holds synchronization engine settings.
type MonitorConfig struct {
	IntervalMs int    `yaml:"interval_ms"` // poll tick period
	Depth      uint64 `yaml:"depth"`       // monitoring depth in slots; also sizes the cache
	Workers    int    `yaml:"workers"`     // fill worker count
}

// Interval returns the poll tick period as a duration.
func (m MonitorConfig) Interval() time.Duration {
	return time.Duration(m.IntervalMs) * time.Millisecond
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
