// Package catalog compiles OpenAPI documents into tool descriptors.
//
// The descriptor types mirror the wire-facing catalog shape: one Tool per
// documented (method, path) operation, with its parameters classified by
// request location. Descriptors are immutable after extraction; synthesis
// into callable MCP tools happens in the tools package.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bobmcallan/iris-mcp/internal/common"
)

// Sentinel errors for the compile pipeline. All wrapped with %w so callers
// can classify failures with errors.Is.
var (
	// ErrSchemaUnavailable indicates the OpenAPI document could not be
	// fetched or parsed. Aborts that service's initialization.
	ErrSchemaUnavailable = errors.New("openapi schema unavailable")
	// ErrMalformedOperation indicates one operation's descriptor is
	// inconsistent (e.g. a path placeholder with no matching parameter).
	// Skips that operation only.
	ErrMalformedOperation = errors.New("malformed operation")
)

// allowedMethods is the whitelist of HTTP methods for compiled tools.
var allowedMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
	"HEAD": true, "OPTIONS": true, "TRACE": true,
}

// Tool represents one operation descriptor compiled from an OpenAPI document.
type Tool struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Method      string  `json:"method"`
	Path        string  `json:"path"`
	Params      []Param `json:"params"`
}

// Param describes one argument of a compiled tool.
type Param struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // string, number, integer, boolean, array, object
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	In          string   `json:"in"` // path, query, header, cookie, body
	Enum        []string `json:"enum,omitempty"`
}

// ValidateTool validates a single tool descriptor.
func ValidateTool(ct Tool) error {
	if ct.Name == "" {
		return fmt.Errorf("tool has empty name")
	}
	if ct.Method == "" {
		return fmt.Errorf("tool %q has empty method", ct.Name)
	}
	if !allowedMethods[strings.ToUpper(ct.Method)] {
		return fmt.Errorf("tool %q has unsupported method %q", ct.Name, ct.Method)
	}
	if !strings.HasPrefix(ct.Path, "/") {
		return fmt.Errorf("tool %q has invalid path %q (must start with /)", ct.Name, ct.Path)
	}
	return nil
}

// Validate filters tool descriptors, logging warnings for invalid entries.
// Duplicate names are deliberately not filtered here: a name collision is a
// configuration error surfaced by the registry, not silently dropped.
func Validate(tools []Tool, logger *common.Logger) []Tool {
	valid := make([]Tool, 0, len(tools))
	for _, ct := range tools {
		if err := ValidateTool(ct); err != nil {
			logger.Warn().Str("error", err.Error()).Msg("skipping invalid tool descriptor")
			continue
		}
		valid = append(valid, ct)
	}
	return valid
}
