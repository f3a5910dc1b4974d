package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/bobmcallan/iris-mcp/internal/common"
)

// maxSpecSize caps the fetched document size to prevent OOM from an
// unexpectedly large response (10MB).
const maxSpecSize = 10 << 20

// FetchDocument retrieves and parses an OpenAPI 3.x document from specURL.
// One GET, no retries: this runs once at startup and a failure abandons the
// enclosing service's initialization, reported as ErrSchemaUnavailable.
func FetchDocument(ctx context.Context, client *http.Client, specURL string) (*openapi3.T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, specURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaUnavailable, specURL, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaUnavailable, specURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrSchemaUnavailable, specURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSpecSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: failed to read body: %v", ErrSchemaUnavailable, specURL, err)
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaUnavailable, specURL, err)
	}

	return doc, nil
}

// BaseURL resolves the base URL that compiled tools dispatch against.
// Prefers the document's first servers entry; a relative entry is joined to
// the spec URL's origin, and a missing servers block falls back to the origin
// alone.
func BaseURL(doc *openapi3.T, specURL string, logger *common.Logger) string {
	origin := ""
	if u, err := url.Parse(specURL); err == nil && u.Host != "" {
		origin = u.Scheme + "://" + u.Host
	}

	if len(doc.Servers) == 0 || doc.Servers[0].URL == "" {
		return origin
	}
	if len(doc.Servers) > 1 {
		logger.Info().Int("servers", len(doc.Servers)).Msg("multiple servers in document, choosing the first")
	}

	serverURL := strings.TrimSuffix(doc.Servers[0].URL, "/")
	if strings.HasPrefix(serverURL, "http://") || strings.HasPrefix(serverURL, "https://") {
		return serverURL
	}
	if !strings.HasPrefix(serverURL, "/") {
		serverURL = "/" + serverURL
	}
	return origin + serverURL
}

// RequiresBearerAuth reports whether the document declares a bearer security
// scheme, in which case callers are expected to supply an authorization value
// unless a static auth header is configured for the service.
func RequiresBearerAuth(doc *openapi3.T) bool {
	if doc.Components == nil {
		return false
	}
	for _, ref := range doc.Components.SecuritySchemes {
		if ref == nil || ref.Value == nil {
			continue
		}
		if strings.EqualFold(ref.Value.Scheme, "bearer") {
			return true
		}
	}
	return false
}
