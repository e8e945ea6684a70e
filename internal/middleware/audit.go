package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/harmonix/backend/internal/services"
)

const maxAuditBody = 2000

// AuditLog records state-changing requests (POST/PUT/PATCH/DELETE) to system_logs.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != "POST" && method != "PUT" && method != "PATCH" && method != "DELETE" {
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil {
			raw, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))
			body = maskBody(raw, c.ContentType())
			if len(body) > maxAuditBody {
				body = body[:maxAuditBody] + "...[truncated]"
			}
		}

		c.Next()

		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)

		var uid *uint
		if id := GetUserID(c); id > 0 {
			uid = &id
		}

		services.LogInfo(module, action, formatAuditMessage(GetUsername(c), method, c.Request.URL.Path, status), uid,
			c.ClientIP(), c.Request.UserAgent(), map[string]interface{}{
				"method": method,
				"path":   c.Request.URL.Path,
				"status": status,
				"body":   body,
				"audit":  true,
			})
	}
}

// parseRouteInfo maps a route pattern to a module and action, e.g.
// "/listings/:id/delete" + POST gives module "listings", action "delete".
func parseRouteInfo(fullPath, method string) (module, action string) {
	path := strings.Trim(strings.TrimPrefix(fullPath, "/api"), "/")
	if path == "" {
		return "unknown", strings.ToLower(method)
	}

	parts := strings.Split(path, "/")
	module = parts[0]

	// the last static segment names the action when there is one
	for i := len(parts) - 1; i > 0; i-- {
		if !strings.HasPrefix(parts[i], ":") && !strings.HasPrefix(parts[i], "*") {
			return module, strings.ReplaceAll(parts[i], "-", "_")
		}
	}

	switch method {
	case "POST":
		action = "create"
	case "PUT", "PATCH":
		action = "update"
	case "DELETE":
		action = "delete"
	default:
		action = strings.ToLower(method)
	}
	return module, action
}

func formatAuditMessage(username, method, path string, status int) string {
	if username == "" {
		username = "anonymous"
	}
	outcome := "OK"
	if status < 200 || status >= 400 {
		outcome = "Failed"
	}
	return "[Audit] " + username + " " + method + " " + path + " -> " + outcome
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range []string{"password", "secret", "token", "api_key"} {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// maskBody replaces sensitive values in form or JSON bodies. Other bodies are
// dropped.
func maskBody(raw []byte, contentType string) string {
	if len(raw) == 0 {
		return ""
	}

	switch contentType {
	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return ""
		}
		for key := range values {
			if isSensitiveKey(key) {
				values[key] = []string{"***"}
			}
		}
		return values.Encode()
	case "application/json":
		var fields map[string]interface{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return ""
		}
		for key := range fields {
			if isSensitiveKey(key) {
				fields[key] = "***"
			}
		}
		masked, err := json.Marshal(fields)
		if err != nil {
			return ""
		}
		return string(masked)
	}
	return ""
}
