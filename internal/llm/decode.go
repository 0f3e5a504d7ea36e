package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

const maxSnippetLen = 160

// DecodeJSON decodes a JSON object from a model response. It tolerates
// markdown code fences and prose around the object. Failures are ParseErrors.
func DecodeJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ParseError("decode response", "empty payload", nil)
	}

	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	sanitized := sanitizeJSONPayload(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return ParseError("decode response", fmt.Sprintf("invalid JSON (payload snippet: %s)", snippet(trimmed)), directErr)
	}
	if err := json.Unmarshal([]byte(sanitized), target); err != nil {
		return ParseError("decode response", fmt.Sprintf("invalid JSON (sanitized payload snippet: %s)", snippet(sanitized)), err)
	}
	return nil
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFence(content))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '{' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		trimmed = trimmed[nl+1:]
	}
	if end := strings.LastIndex(trimmed, "```"); end >= 0 {
		trimmed = trimmed[:end]
	}
	return strings.TrimSpace(trimmed)
}

func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxSnippetLen {
		return s[:maxSnippetLen] + "..."
	}
	return s
}

// RequireField returns a ParseError when value is blank.
func RequireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return ParseError("decode response", fmt.Sprintf("%q is missing or empty", name), nil)
	}
	return nil
}
