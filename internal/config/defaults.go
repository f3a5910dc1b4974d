package config

import "github.com/bobmcallan/iris-mcp/internal/common"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "iris",
			Port: "8000",
		},
		Logging: common.LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console", "file"},
			FilePath:   "logs/iris-mcp.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}
