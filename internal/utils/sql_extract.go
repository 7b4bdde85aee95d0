package utils

import (
	"strings"
)

const fence = "```"

// ExtractSQL strips markdown code fences from model output and returns the
// statement text. Supports ```sql ... ```, ``` ... ``` and a lone opening or
// closing fence. Output without fences is returned trimmed.
func ExtractSQL(input string) string {
	text := strings.TrimSpace(input)

	start := strings.Index(text, fence)
	if start < 0 {
		return text
	}

	var body string
	opening := true
	if end := strings.Index(text[start+len(fence):], fence); end >= 0 {
		body = text[start+len(fence) : start+len(fence)+end]
	} else if start == 0 {
		body = text[len(fence):]
	} else {
		// closing fence only
		body = text[:start]
		opening = false
	}

	// Drop the language tag of an opening fence, on its own line or
	// followed by the statement on the same line
	if opening {
		if i := strings.IndexAny(body, " \t\r\n"); i >= 0 && isLanguageTag(body[:i]) {
			body = body[i+1:]
		}
	}

	return strings.TrimSpace(body)
}

func isLanguageTag(s string) bool {
	if s == "" || len(s) > 16 {
		return false
	}
	if strings.EqualFold(s, "select") || strings.EqualFold(s, "with") {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '+', r == '-':
		default:
			return false
		}
	}
	return true
}

// TruncateString shortens s to maxLen bytes for log output
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
