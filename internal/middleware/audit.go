package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tchtranslate/portal/internal/services"
)

const maxAuditBody = 2000

// AuditLog records write requests (POST/PUT/PATCH/DELETE) to system_logs.
// Multipart bodies are not captured.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			c.Next()
			return
		}

		var bodySnippet string
		if c.Request.Body != nil && !strings.HasPrefix(c.ContentType(), "multipart/") {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			bodySnippet = string(bodyBytes)
			if len(bodySnippet) > maxAuditBody {
				bodySnippet = bodySnippet[:maxAuditBody] + "...[truncated]"
			}
			bodySnippet = maskSensitiveFields(bodySnippet)
		}

		c.Next()

		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)
		message := formatAuditMessage(c.GetString(ContextEmail), method, c.Request.URL.Path, status)
		extra := map[string]interface{}{
			"method": method,
			"path":   c.Request.URL.Path,
			"status": status,
			"body":   bodySnippet,
		}

		who := GetAudit(c)
		switch {
		case status >= 500:
			services.LogError(module, action, message, who, extra)
		case status >= 400:
			services.LogWarning(module, action, message, who, extra)
		default:
			services.LogInfo(module, action, message, who, extra)
		}
	}
}

// parseRouteInfo maps a route pattern onto a module and action, e.g.
// "/api/projects/:id/status" + PUT gives ("Projects", "Update").
// Callable functions log under "Functions" with the function name as
// action.
func parseRouteInfo(fullPath, method string) (module, action string) {
	path := strings.TrimPrefix(fullPath, "/api/")
	parts := strings.SplitN(path, "/", 2)
	module = parts[0]
	if module == "" {
		return "Unknown", method
	}
	module = titleWords(strings.ReplaceAll(module, "-", " "))

	switch method {
	case http.MethodPost:
		action = "Create"
	case http.MethodPut, http.MethodPatch:
		action = "Update"
	case http.MethodDelete:
		action = "Delete"
	default:
		action = method
	}
	return module, action
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func formatAuditMessage(who, method, path string, status int) string {
	var b strings.Builder
	b.WriteString("[Audit] ")
	if who == "" {
		who = "anonymous"
	}
	b.WriteString(who)
	b.WriteString(" ")
	b.WriteString(method)
	b.WriteString(" ")
	b.WriteString(path)
	b.WriteString(" -> ")
	if status >= 200 && status < 300 {
		b.WriteString("OK")
	} else {
		b.WriteString("Failed")
	}
	return b.String()
}

// maskSensitiveFields blanks password and token values in a JSON body.
func maskSensitiveFields(body string) string {
	for _, key := range []string{"password", "oldPassword", "newPassword", "secret", "token", "idToken"} {
		body = maskJSONValue(body, key)
	}
	return body
}

// maskJSONValue does a best-effort mask of every "key": "value" pair.
func maskJSONValue(body, key string) string {
	needle := "\"" + key + "\""
	from := 0
	for {
		idx := strings.Index(body[from:], needle)
		if idx == -1 {
			return body
		}
		idx += from + len(needle)

		colon := strings.Index(body[idx:], ":")
		if colon == -1 {
			return body
		}
		start := idx + colon + 1
		for start < len(body) && (body[start] == ' ' || body[start] == '\t') {
			start++
		}
		if start >= len(body) || body[start] != '"' {
			from = idx
			continue
		}
		end := strings.Index(body[start+1:], "\"")
		if end == -1 {
			return body
		}
		body = body[:start+1] + "***" + body[start+1+end:]
		from = start + 4
	}
}
