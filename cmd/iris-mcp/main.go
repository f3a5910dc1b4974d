package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/iris-mcp/internal/common"
	"github.com/bobmcallan/iris-mcp/internal/config"
	"github.com/bobmcallan/iris-mcp/internal/tools"
)

// compileTimeout bounds one service's fetch+compile at startup.
const compileTimeout = 30 * time.Second

func main() {
	stdio := flag.Bool("stdio", false, "Use stdio transport (for desktop MCP clients)")
	configFile := flag.String("config", "iris-mcp.toml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	common.LoadVersionFromFile()
	logger := common.NewLoggerFromConfig(cfg.Logging)

	if len(cfg.Services) == 0 {
		logger.Warn().Msg("no upstream services configured, serving built-in tools only")
	}

	reg := tools.NewRegistry()
	client := &http.Client{Timeout: 300 * time.Second}

	// Per-service pipelines are independent and failure-isolated: one bad
	// document must not block or abort the others.
	var wg sync.WaitGroup
	for i, svc := range cfg.Services {
		if svc.OpenAPIURL == "" {
			logger.Warn().Int("service", i).Msg("service has no openapi_url, skipping")
			continue
		}
		wg.Add(1)
		go func(i int, svc config.ServiceConfig) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), compileTimeout)
			defer cancel()
			n, err := tools.CompileService(ctx, reg, i, svc, client, logger)
			if err != nil {
				logger.Error().
					Int("service", i).
					Str("openapi_url", svc.OpenAPIURL).
					Str("error", err.Error()).
					Msg("service initialization failed")
				return
			}
			logger.Info().
				Int("service", i).
				Int("tools", n).
				Str("openapi_url", svc.OpenAPIURL).
				Msg("service tools compiled")
		}(i, svc)
	}
	wg.Wait()

	mcpSrv := server.NewMCPServer(
		cfg.Server.Name,
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	count := tools.AddToServer(mcpSrv, reg)
	mcpSrv.AddTool(tools.VersionTool(), tools.VersionToolHandler())

	logger.Info().Int("tools", count).Msg("MCP server initialized")

	if *stdio {
		// Stdio transport — reads stdin, writes stdout
		if err := server.ServeStdio(mcpSrv); err != nil {
			fmt.Fprintf(os.Stderr, "stdio server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Streamable HTTP transport — listens on configured port
	httpServer := server.NewStreamableHTTPServer(mcpSrv,
		server.WithStateLess(true),
	)

	logger.Info().Str("port", cfg.Server.Port).Msg("starting MCP streamable HTTP")
	fmt.Fprintf(os.Stderr, "Starting MCP Streamable HTTP on :%s\n", cfg.Server.Port)

	if err := httpServer.Start(":" + cfg.Server.Port); err != nil {
		fmt.Fprintf(os.Stderr, "http server error: %v\n", err)
		os.Exit(1)
	}
}
