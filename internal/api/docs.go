package api

import (
	"html"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// APISpec represents the API specification.
type APISpec struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Version     string     `json:"version"`
	Endpoints   []Endpoint `json:"endpoints"`
}

// Endpoint represents an API endpoint specification.
type Endpoint struct {
	Method      string              `json:"method"`
	Path        string              `json:"path"`
	Summary     string              `json:"summary"`
	Description string              `json:"description"`
	Auth        bool                `json:"auth"`
	Request     *RequestSpec        `json:"request,omitempty"`
	Responses   map[string]Response `json:"responses"`
}

// RequestSpec represents request body specification.
type RequestSpec struct {
	ContentType string           `json:"content_type"`
	Schema      map[string]Field `json:"schema"`
	Example     any              `json:"example,omitempty"`
}

// Response represents a response specification.
type Response struct {
	Description string `json:"description"`
	Example     any    `json:"example,omitempty"`
}

// Field represents a schema field.
type Field struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

var rpcSchema = map[string]Field{
	"jsonrpc": {Type: "string", Description: "Must be \"2.0\"", Required: true},
	"id":      {Type: "string|integer", Description: "Request ID, echoed in every response; generated when absent", Required: false},
	"method":  {Type: "string", Description: "JSON-RPC method name", Required: true},
	"params":  {Type: "object", Description: "MessageSendParams: message.parts carries the user text, metadata.skillId selects the skill", Required: false},
}

func messageExample(method string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params": map[string]any{
			"message": map[string]any{
				"role":      "user",
				"messageId": "msg-1",
				"kind":      "message",
				"parts": []map[string]string{
					{"kind": "text", "text": "In 3 bullets, what is HTTP streaming?"},
				},
			},
			"metadata": map[string]string{"skillId": "openai.brief"},
		},
	}
}

// getAPISpec returns the API specification.
func getAPISpec() APISpec {
	return APISpec{
		Title:       "A2A Chat Agent API",
		Description: "Agent-to-Agent JSON-RPC server that forwards user prompts to a language model. Answers come back in one response or as a stream of task events.",
		Version:     "1.0.0",
		Endpoints: []Endpoint{
			{
				Method:      "GET",
				Path:        "/health",
				Summary:     "Health Check",
				Description: "Returns the health status of the API server.",
				Responses: map[string]Response{
					"200": {
						Description: "Server is healthy",
						Example:     map[string]string{"status": "ok"},
					},
				},
			},
			{
				Method:      "GET",
				Path:        "/.well-known/agent-card.json",
				Summary:     "Agent Card",
				Description: "Public descriptor of the agent: capabilities, skills and supported modes.",
				Responses: map[string]Response{
					"200": {Description: "The agent card"},
				},
			},
			{
				Method:      "POST",
				Path:        "/",
				Summary:     "JSON-RPC Endpoint",
				Description: "Single-response JSON-RPC 2.0 endpoint. Supports message/send. agent/getAuthenticatedExtendedCard answers -32007 and message/stream answers -32601.",
				Auth:        true,
				Request: &RequestSpec{
					ContentType: "application/json",
					Schema:      rpcSchema,
					Example:     messageExample("message/send"),
				},
				Responses: map[string]Response{
					"200": {
						Description: "JSON-RPC response carrying a completed task or an error",
						Example: map[string]any{
							"jsonrpc": "2.0",
							"id":      1,
							"result": map[string]any{
								"id":     "task-uuid",
								"kind":   "task",
								"status": map[string]string{"state": "completed"},
								"artifacts": []map[string]any{{
									"artifactId": "artifact-uuid",
									"name":       "answer",
									"parts":      []map[string]string{{"kind": "text", "text": "## HTTP streaming\n- ..."}},
								}},
							},
						},
					},
					"401": {
						Description: "Missing or invalid bearer token",
						Example: map[string]any{
							"jsonrpc": "2.0",
							"id":      nil,
							"error":   map[string]any{"code": -32600, "message": "Unauthorized"},
						},
					},
				},
			},
			{
				Method:      "POST",
				Path:        "/message/stream",
				Summary:     "Streaming Endpoint",
				Description: "Server-sent events for message/stream. Each data record is a JSON-RPC response: the submitted task, two working updates, artifact chunks, then a final completed update or a -32000 error.",
				Auth:        true,
				Request: &RequestSpec{
					ContentType: "application/json",
					Schema:      rpcSchema,
					Example:     messageExample("message/stream"),
				},
				Responses: map[string]Response{
					"200": {Description: "text/event-stream of JSON-RPC responses"},
				},
			},
			{
				Method:      "GET",
				Path:        "/calls",
				Summary:     "Call Journal",
				Description: "Most recent journaled calls, newest first. Available when data_dir is configured. Query parameter limit (1-200, default 20).",
				Auth:        true,
				Responses: map[string]Response{
					"200": {Description: "Recent calls"},
					"400": {
						Description: "Invalid limit",
						Example:     map[string]string{"error": "limit must be between 1 and 200"},
					},
				},
			},
			{
				Method:      "GET",
				Path:        "/metrics",
				Summary:     "Prometheus Metrics",
				Description: "Prometheus exposition format. Available when metrics are enabled.",
				Responses: map[string]Response{
					"200": {Description: "Metrics"},
				},
			},
		},
	}
}

// handleDocsJSON returns the API specification as JSON.
func handleDocsJSON(c *fiber.Ctx) error {
	return c.JSON(getAPISpec())
}

// handleDocsHTML returns an HTML documentation page.
func handleDocsHTML(c *fiber.Ctx) error {
	spec := getAPISpec()
	esc := html.EscapeString

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>` + esc(spec.Title) + ` - API Documentation</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #1a1a2e; color: #eee; line-height: 1.6; margin: 0; }
        .container { max-width: 1100px; margin: 0 auto; padding: 20px; }
        header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); padding: 30px 20px; margin-bottom: 30px; border-radius: 10px; }
        .endpoint { background: #252540; border-radius: 10px; margin-bottom: 16px; padding: 15px 20px; border: 1px solid #3a3a5c; }
        .method { padding: 4px 10px; border-radius: 5px; font-weight: bold; font-size: 0.85em; margin-right: 10px; }
        .method.GET { background: #61affe; }
        .method.POST { background: #49cc90; }
        .path { font-family: monospace; font-size: 1.1em; }
        .auth { color: #fca130; font-size: 0.8em; margin-left: 8px; }
        .desc { color: #aaa; }
        td { padding: 4px 10px 4px 0; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>` + esc(spec.Title) + `</h1>
            <span>v` + esc(spec.Version) + `</span>
            <p>` + esc(spec.Description) + `</p>
        </header>
`)

	for _, ep := range spec.Endpoints {
		b.WriteString(`        <div class="endpoint">
            <span class="method ` + ep.Method + `">` + ep.Method + `</span><span class="path">` + esc(ep.Path) + `</span>`)
		if ep.Auth {
			b.WriteString(`<span class="auth">bearer</span>`)
		}
		b.WriteString(`
            <p class="desc">` + esc(ep.Description) + `</p>
`)
		if ep.Request != nil {
			b.WriteString("            <table>\n")
			for _, name := range sortedKeys(ep.Request.Schema) {
				f := ep.Request.Schema[name]
				b.WriteString(`                <tr><td><code>` + esc(name) + `</code></td><td>` + esc(f.Type) + `</td><td>` + esc(f.Description) + "</td></tr>\n")
			}
			b.WriteString("            </table>\n")
		}
		for _, code := range sortedKeys(ep.Responses) {
			b.WriteString(`            <div><strong>` + code + `</strong> <span class="desc">` + esc(ep.Responses[code].Description) + "</span></div>\n")
		}
		b.WriteString("        </div>\n")
	}

	b.WriteString(`    </div>
</body>
</html>`)

	c.Set("Content-Type", "text/html")
	return c.SendString(b.String())
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
