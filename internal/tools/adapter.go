package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/iris-mcp/internal/catalog"
	"github.com/bobmcallan/iris-mcp/internal/common"
	"github.com/bobmcallan/iris-mcp/internal/config"
)

var (
	// ErrMissingPathParam indicates a required path parameter was absent
	// from the call arguments.
	ErrMissingPathParam = errors.New("missing path parameter")
	// ErrDownstream indicates a transport failure or non-success status
	// from the upstream service.
	ErrDownstream = errors.New("downstream request failed")
)

// maxResponseSize caps the response body to prevent OOM from unexpectedly
// large responses (50MB).
const maxResponseSize = 50 << 20

// Invoker dispatches compiled tool calls to one upstream service. It is
// stateless across calls; concurrent invocations share nothing but the
// HTTP client.
type Invoker struct {
	baseURL    string
	authHeader string
	authBypass string
	httpClient *http.Client
	logger     *common.Logger
}

// NewInvoker creates an invoker for one upstream service.
func NewInvoker(baseURL string, svc config.ServiceConfig, client *http.Client, logger *common.Logger) *Invoker {
	if client == nil {
		client = &http.Client{Timeout: 300 * time.Second}
	}
	return &Invoker{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		authHeader: svc.AuthHeader,
		authBypass: svc.AuthBypass,
		httpClient: client,
		logger:     logger,
	}
}

// Invoke executes one best-effort HTTP call for the descriptor: resolves the
// path template, partitions arguments by declared location, conditionally
// injects the auth header, dispatches, and normalizes a successful JSON
// response. Arguments not matching any declared parameter are dropped, never
// forwarded. No retries; a failure is returned as a typed error.
func (iv *Invoker) Invoke(ctx context.Context, ct catalog.Tool, args map[string]any) (json.RawMessage, error) {
	log := iv.logger.WithCorrelationId(uuid.New().String())

	path := ct.Path
	query := url.Values{}
	headers := http.Header{}
	var cookies []*http.Cookie
	body := map[string]any{}

	for _, p := range ct.Params {
		val, ok := args[p.Name]
		switch p.In {
		case "path":
			strVal := ""
			if ok {
				strVal = fmt.Sprint(val)
			}
			if strVal == "" {
				return nil, fmt.Errorf("%w: %s", ErrMissingPathParam, p.Name)
			}
			path = strings.ReplaceAll(path, "{"+p.Name+"}", url.PathEscape(strVal))
		case "query":
			if ok {
				if s := fmt.Sprint(val); s != "" {
					query.Set(p.Name, s)
				}
			}
		case "header":
			if ok {
				if s := fmt.Sprint(val); s != "" {
					headers.Set(p.Name, s)
				}
			}
		case "cookie":
			if ok {
				if s := fmt.Sprint(val); s != "" {
					cookies = append(cookies, &http.Cookie{Name: p.Name, Value: s})
				}
			}
		case "body":
			if ok && val != nil {
				body[p.Name] = val
			}
		}
	}

	// Bypass check is string-contains against the resolved path, so a
	// substituted segment can also match.
	if iv.authHeader != "" && (iv.authBypass == "" || !strings.Contains(path, iv.authBypass)) {
		headers.Set("Authorization", iv.authHeader)
	}

	fullURL := iv.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if len(body) > 0 {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to marshal request body: %v", ErrDownstream, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, ct.Method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownstream, err)
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, vals := range headers {
		for _, v := range vals {
			req.Header.Set(key, v)
		}
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	log.Debug().Str("method", ct.Method).Str("url", fullURL).Msg("tool dispatch")

	start := time.Now()
	resp, err := iv.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		log.Warn().Str("method", ct.Method).Str("url", fullURL).Int64("duration_ms", duration.Milliseconds()).Str("error", err.Error()).Msg("tool dispatch failed")
		return nil, fmt.Errorf("%w: %v", ErrDownstream, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrDownstream, err)
	}

	log.Debug().Int("status", resp.StatusCode).Int64("duration_ms", duration.Milliseconds()).Msg("tool response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s %s returned status %d", ErrDownstream, ct.Method, path, resp.StatusCode)
	}

	return normalize(respBody)
}

// normalize parses a successful response body as JSON. An empty body is a
// null result; a non-JSON body is a downstream failure.
func normalize(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: response body is not valid JSON", ErrDownstream)
	}
	return json.RawMessage(trimmed), nil
}
