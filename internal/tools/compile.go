package tools

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/iris-mcp/internal/catalog"
	"github.com/bobmcallan/iris-mcp/internal/common"
	"github.com/bobmcallan/iris-mcp/internal/config"
)

// CompileService runs the full pipeline for one upstream service: fetch the
// OpenAPI document, extract operation descriptors, synthesize tool
// definitions, and register them under the service index. On error no tools
// remain registered for the service; other services are unaffected.
func CompileService(ctx context.Context, reg *Registry, service int, svc config.ServiceConfig, client *http.Client, logger *common.Logger) (int, error) {
	doc, err := catalog.FetchDocument(ctx, client, svc.OpenAPIURL)
	if err != nil {
		return 0, err
	}

	baseURL := catalog.BaseURL(doc, svc.OpenAPIURL, logger)
	opts := catalog.ExtractOptions{
		DeclareAuthParam: svc.AuthHeader == "" && catalog.RequiresBearerAuth(doc),
		AuthBypass:       svc.AuthBypass,
	}
	descriptors := catalog.Validate(catalog.Extract(doc, opts, logger), logger)

	iv := NewInvoker(baseURL, svc, client, logger)
	for _, ct := range descriptors {
		if err := reg.Register(service, Synthesize(ct, iv, logger)); err != nil {
			reg.Drop(service)
			return 0, err
		}
		logger.Info().Str("tool", ct.Name).Str("method", ct.Method).Str("path", ct.Path).Msg("tool compiled")
	}
	return len(descriptors), nil
}

// AddToServer registers every compiled tool on the MCP server for
// transport-layer discovery and dispatch.
func AddToServer(s *server.MCPServer, reg *Registry) int {
	count := 0
	for _, svc := range reg.Services() {
		for _, def := range reg.List(svc) {
			s.AddTool(def.Tool, def.Handler)
			count++
		}
	}
	return count
}
