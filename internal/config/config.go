package config

import (
	"fmt"
	"os"
	"strconv"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/iris-mcp/internal/common"
)

// Config holds all iris-mcp configuration.
type Config struct {
	Server   ServerConfig         `toml:"server"`
	Services []ServiceConfig      `toml:"services"`
	Logging  common.LoggingConfig `toml:"logging"`
}

// ServerConfig holds MCP server settings.
type ServerConfig struct {
	Name string `toml:"name"`
	Port string `toml:"port"`
}

// ServiceConfig describes one upstream REST service whose OpenAPI document
// is compiled into tools.
type ServiceConfig struct {
	// OpenAPIURL is the URL of the service's OpenAPI 3.x JSON document.
	OpenAPIURL string `toml:"openapi_url"`
	// AuthHeader is an optional static Authorization value (e.g. "Bearer x")
	// attached to every non-bypassed call to this service.
	AuthHeader string `toml:"auth_header"`
	// AuthBypass is an optional path substring; calls whose resolved path
	// contains it are dispatched without the auth header.
	AuthBypass string `toml:"auth_bypass"`
}

// Load loads configuration with priority: defaults -> file -> env.
// A missing config file is not an error; defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else {
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to config.
// The SERVERS_COUNT / SERVERS{i}_* variables replace the whole services list,
// matching the original deployment surface of the iris container.
func applyEnvOverrides(cfg *Config) {
	if port := os.Getenv("IRIS_MCP_PORT"); port != "" {
		cfg.Server.Port = port
	}
	if level := os.Getenv("IRIS_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	if count := os.Getenv("SERVERS_COUNT"); count != "" {
		n, err := strconv.Atoi(count)
		if err != nil || n < 0 {
			return
		}
		services := make([]ServiceConfig, 0, n)
		for i := 0; i < n; i++ {
			services = append(services, ServiceConfig{
				OpenAPIURL: os.Getenv(fmt.Sprintf("SERVERS%d_OPENAPI_URL", i)),
				AuthHeader: os.Getenv(fmt.Sprintf("SERVERS%d_AUTH_HEADER", i)),
			})
		}
		cfg.Services = services
	}

	if bypass := os.Getenv("URL_MATCH_FOR_NON_AUTH"); bypass != "" {
		for i := range cfg.Services {
			cfg.Services[i].AuthBypass = bypass
		}
	}
}
