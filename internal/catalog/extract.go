package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/bobmcallan/iris-mcp/internal/common"
)

var (
	pathPlaceholder = regexp.MustCompile(`\{([^{}]+)\}`)
	camelBoundary   = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	unsafeChars     = regexp.MustCompile(`[^a-z0-9_]`)
	underscoreRuns  = regexp.MustCompile(`_+`)
)

// ExtractOptions controls descriptor extraction for one service.
type ExtractOptions struct {
	// DeclareAuthParam adds a header-located "authorization" argument to every
	// operation not matched by AuthBypass. Set when the document declares a
	// bearer security scheme and no static auth header is configured.
	DeclareAuthParam bool
	// AuthBypass is the path substring exempt from auth handling.
	AuthBypass string
}

// Extract walks the document's path/method tree and yields one Tool
// descriptor per operation. Path-level parameters are merged with
// operation-level ones (operation wins on a name+location collision).
// A malformed operation is skipped with a warning; the rest of the document
// still compiles. Extraction is deterministic: the same document always
// yields the same descriptors in the same order.
func Extract(doc *openapi3.T, opts ExtractOptions, logger *common.Logger) []Tool {
	if doc == nil || doc.Paths == nil {
		return nil
	}

	pathMap := doc.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for p := range pathMap {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var out []Tool
	for _, path := range paths {
		item := pathMap[path]
		if item == nil {
			continue
		}

		ops := item.Operations()
		methods := make([]string, 0, len(ops))
		for m := range ops {
			methods = append(methods, m)
		}
		sort.Strings(methods)

		for _, method := range methods {
			op := ops[method]
			if op == nil {
				continue
			}
			ct, err := buildDescriptor(path, method, item, op, opts)
			if err != nil {
				logger.Warn().
					Str("method", method).
					Str("path", path).
					Str("error", err.Error()).
					Msg("skipping operation")
				continue
			}
			out = append(out, ct)
		}
	}
	return out
}

// buildDescriptor derives one Tool descriptor from an operation.
func buildDescriptor(path, method string, item *openapi3.PathItem, op *openapi3.Operation, opts ExtractOptions) (Tool, error) {
	ct := Tool{
		Name:   ToolName(method, path, op.OperationID),
		Method: strings.ToUpper(method),
		Path:   path,
	}
	if op.Summary != "" {
		ct.Description = op.Summary
	} else {
		ct.Description = op.Description
	}

	declaredPathParams := map[string]bool{}
	for _, p := range mergeParameters(item.Parameters, op.Parameters) {
		switch p.In {
		case openapi3.ParameterInPath, openapi3.ParameterInQuery,
			openapi3.ParameterInHeader, openapi3.ParameterInCookie:
		default:
			continue
		}
		if p.In == openapi3.ParameterInPath {
			declaredPathParams[p.Name] = true
		}
		ct.Params = append(ct.Params, Param{
			Name:        p.Name,
			Type:        schemaType(p.Schema),
			Description: paramDescription(p),
			// OpenAPI mandates required:true on path params; lenient
			// documents omit it, so path location implies required.
			Required: p.Required || p.In == openapi3.ParameterInPath,
			In:       p.In,
			Enum:     enumValues(p.Schema),
		})
	}

	for _, m := range pathPlaceholder.FindAllStringSubmatch(path, -1) {
		if !declaredPathParams[m[1]] {
			return Tool{}, fmt.Errorf("%w: path parameter {%s} has no declaration", ErrMalformedOperation, m[1])
		}
	}

	ct.Params = append(ct.Params, bodyParams(op.RequestBody)...)

	if opts.DeclareAuthParam && (opts.AuthBypass == "" || !strings.Contains(path, opts.AuthBypass)) {
		ct.Params = append(ct.Params, Param{
			Name:        "authorization",
			Type:        "string",
			Description: "Value forwarded as the Authorization header",
			In:          openapi3.ParameterInHeader,
		})
	}

	return ct, nil
}

// mergeParameters combines path-level and operation-level parameter
// declarations, deduplicated by (name, location) with operation-level
// taking precedence. Declaration order is preserved.
func mergeParameters(pathLevel, opLevel openapi3.Parameters) []*openapi3.Parameter {
	type key struct{ name, in string }
	var order []key
	merged := map[key]*openapi3.Parameter{}

	add := func(refs openapi3.Parameters) {
		for _, ref := range refs {
			if ref == nil || ref.Value == nil {
				continue
			}
			p := ref.Value
			k := key{p.Name, p.In}
			if _, seen := merged[k]; !seen {
				order = append(order, k)
			}
			merged[k] = p
		}
	}
	add(pathLevel)
	add(opLevel)

	out := make([]*openapi3.Parameter, 0, len(order))
	for _, k := range order {
		out = append(out, merged[k])
	}
	return out
}

// bodyParams flattens an application/json request body's top-level object
// properties into body-located params, sorted by name for stable output.
// The schema only documents the body shape to callers; values are forwarded
// without validation.
func bodyParams(ref *openapi3.RequestBodyRef) []Param {
	if ref == nil || ref.Value == nil {
		return nil
	}
	mt := ref.Value.Content.Get("application/json")
	if mt == nil || mt.Schema == nil || mt.Schema.Value == nil {
		return nil
	}
	schema := mt.Schema.Value
	if len(schema.Properties) == 0 {
		return nil
	}

	required := map[string]bool{}
	for _, r := range schema.Required {
		required[r] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Param, 0, len(names))
	for _, name := range names {
		prop := schema.Properties[name]
		out = append(out, Param{
			Name:        name,
			Type:        schemaType(prop),
			Description: schemaDescription(prop),
			Required:    required[name],
			In:          "body",
			Enum:        enumValues(prop),
		})
	}
	return out
}

// ToolName computes the canonical tool name for an operation: the sanitized
// operationId when present, otherwise a deterministic snake_case token
// derived from method and path template.
func ToolName(method, path, operationID string) string {
	if operationID != "" {
		return sanitizeName(operationID)
	}
	return sanitizeName(strings.ToLower(method) + "_" + path)
}

// sanitizeName converts a string to a name-safe snake_case token:
// camelCase boundaries become underscores, anything outside [a-z0-9_] is
// replaced, runs collapse, edges trim.
func sanitizeName(s string) string {
	s = camelBoundary.ReplaceAllString(s, "${1}_${2}")
	s = strings.ToLower(s)
	s = unsafeChars.ReplaceAllString(s, "_")
	s = underscoreRuns.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

func schemaType(ref *openapi3.SchemaRef) string {
	if ref == nil || ref.Value == nil || ref.Value.Type == nil {
		return "string"
	}
	if types := ref.Value.Type.Slice(); len(types) > 0 {
		return types[0]
	}
	return "string"
}

func schemaDescription(ref *openapi3.SchemaRef) string {
	if ref == nil || ref.Value == nil {
		return ""
	}
	return ref.Value.Description
}

func paramDescription(p *openapi3.Parameter) string {
	if p.Description != "" {
		return p.Description
	}
	return schemaDescription(p.Schema)
}

func enumValues(ref *openapi3.SchemaRef) []string {
	if ref == nil || ref.Value == nil || len(ref.Value.Enum) == 0 {
		return nil
	}
	vals := make([]string, 0, len(ref.Value.Enum))
	for _, v := range ref.Value.Enum {
		vals = append(vals, fmt.Sprint(v))
	}
	return vals
}
