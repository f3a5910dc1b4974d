package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/iris-mcp/internal/catalog"
	"github.com/bobmcallan/iris-mcp/internal/common"
)

// InvokeFunc executes one tool invocation and returns the normalized JSON
// result or a typed error.
type InvokeFunc func(ctx context.Context, args map[string]any) (json.RawMessage, error)

// Definition is one synthesized tool: the descriptor it was compiled from,
// the MCP-facing schema, the bound invocation adapter, and the transport
// handler. Created at startup, never mutated.
type Definition struct {
	Spec    catalog.Tool
	Tool    mcp.Tool
	Invoke  InvokeFunc
	Handler server.ToolHandlerFunc
}

// Synthesize converts a descriptor into a tool definition bound to the
// service's invoker. Synthesis performs no I/O; the closure defers all work
// to call time.
func Synthesize(ct catalog.Tool, iv *Invoker, logger *common.Logger) Definition {
	if ct.Description == "" {
		ct.Description = ct.Method + " " + ct.Path
	}
	invoke := func(ctx context.Context, args map[string]any) (json.RawMessage, error) {
		return iv.Invoke(ctx, ct, args)
	}
	return Definition{
		Spec:    ct,
		Tool:    BuildTool(ct),
		Invoke:  invoke,
		Handler: toolHandler(ct, invoke, logger),
	}
}

// BuildTool converts a descriptor into an mcp.Tool with the appropriate
// input schema.
func BuildTool(ct catalog.Tool) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(ct.Description)}
	for _, p := range ct.Params {
		opts = append(opts, buildParamOption(p))
	}
	return mcp.NewTool(ct.Name, opts...)
}

// buildParamOption maps a descriptor param to the appropriate mcp-go tool
// option. OpenAPI "integer" rides on the JSON number type.
func buildParamOption(p catalog.Param) mcp.ToolOption {
	var opts []mcp.PropertyOption
	if p.Description != "" {
		opts = append(opts, mcp.Description(p.Description))
	}
	if p.Required {
		opts = append(opts, mcp.Required())
	}

	switch p.Type {
	case "number", "integer":
		return mcp.WithNumber(p.Name, opts...)
	case "boolean":
		return mcp.WithBoolean(p.Name, opts...)
	case "array":
		opts = append([]mcp.PropertyOption{mcp.WithStringItems()}, opts...)
		return mcp.WithArray(p.Name, opts...)
	case "object":
		return mcp.WithObject(p.Name, opts...)
	default:
		if len(p.Enum) > 0 {
			opts = append(opts, mcp.Enum(p.Enum...))
		}
		return mcp.WithString(p.Name, opts...)
	}
}

// toolHandler wraps an invocation in the MCP result contract.
func toolHandler(ct catalog.Tool, invoke InvokeFunc, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := invoke(ctx, r.GetArguments())
		return collapseResult(ct, raw, err, logger), nil
	}
}

// collapseResult maps an invocation outcome to the transport contract:
// any failure becomes an empty text result, logged but indistinguishable
// from "no result" to the caller. Agents depend on "no result" staying
// distinct from "tool not found", so failures never surface as protocol
// errors here.
func collapseResult(ct catalog.Tool, raw json.RawMessage, err error, logger *common.Logger) *mcp.CallToolResult {
	if err != nil {
		logger.Warn().Str("tool", ct.Name).Str("error", err.Error()).Msg("tool invocation failed")
		return textResult("")
	}
	if raw == nil {
		return textResult("null")
	}
	return textResult(string(raw))
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}
