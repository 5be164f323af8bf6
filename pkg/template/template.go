// Package template renders {{key}} placeholders for message personalization.
package template

import (
	"strings"

	"github.com/betoarts/masszap/pkg/models"
)

// Render performs a single pass over the input, replacing every
// {{key}} placeholder with the corresponding value from data. Keys may be
// dotted paths. Unknown keys render as an empty string; everything outside
// placeholders is copied verbatim.
func Render(input string, data map[string]any) string {
	if !strings.Contains(input, "{{") {
		return input
	}

	var sb strings.Builder

	rest := input

	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			sb.WriteString(rest)

			return sb.String()
		}

		closing := strings.Index(rest[open:], "}}")
		if closing < 0 {
			sb.WriteString(rest)

			return sb.String()
		}

		sb.WriteString(rest[:open])

		key := strings.TrimSpace(rest[open+2 : open+closing])
		sb.WriteString(resolve(key, data))

		rest = rest[open+closing+2:]
	}
}

// RenderContext renders placeholders against an execution context.
func RenderContext(input string, ctx models.ExecutionContext) string {
	return Render(input, map[string]any(ctx))
}

func resolve(key string, data map[string]any) string {
	if key == "" {
		return ""
	}

	value, ok := models.ExecutionContext(data).Lookup(key)
	if !ok {
		return ""
	}

	return models.StringValue(value)
}
