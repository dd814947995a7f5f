package visionocr

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON pulls the JSON object out of a model reply, stripping code
// fences and any prose around the outermost braces.
func ExtractJSON(content string) string {
	s := strings.TrimSpace(content)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		rest = strings.TrimPrefix(rest, "JSON")
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		s = strings.TrimSpace(rest)
	}
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	if end := strings.LastIndexByte(s, '}'); end > start {
		return s[start : end+1]
	}
	return s[start:]
}

// Validate reports why a reply is not a complete JSON object, or nil.
// Braces and brackets are counted outside string literals so truncated
// output is told apart from merely invalid output.
func Validate(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("empty reply")
	}
	js := strings.TrimSpace(ExtractJSON(content))
	if js == "" {
		return fmt.Errorf("no JSON object in reply")
	}
	if !strings.HasPrefix(js, "{") || !strings.HasSuffix(js, "}") {
		return fmt.Errorf("JSON object is not closed")
	}

	var braces, brackets int
	inString, escaped := false, false
	for _, r := range js {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && inString:
			escaped = true
		case r == '"':
			inString = !inString
		case inString:
		case r == '{':
			braces++
		case r == '}':
			braces--
		case r == '[':
			brackets++
		case r == ']':
			brackets--
		}
	}
	if braces != 0 {
		return fmt.Errorf("unbalanced braces: %d", braces)
	}
	if brackets != 0 {
		return fmt.Errorf("unbalanced brackets: %d", brackets)
	}

	if !json.Valid([]byte(js)) {
		var v any
		return fmt.Errorf("invalid JSON: %w", json.Unmarshal([]byte(js), &v))
	}
	return nil
}
