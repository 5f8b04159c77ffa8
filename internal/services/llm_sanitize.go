package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedModelJSON means no JSON object could be recovered from the
// model output, even after stripping fences and repairing truncation.
var ErrMalformedModelJSON = errors.New("malformed model json")

// SanitizeModelJSON extracts a JSON object from raw model output and
// unmarshals it into out. Models wrap output in markdown fences, prepend
// prose, or get cut off mid-object; all three are handled here.
func SanitizeModelJSON(raw string, out any) error {
	candidate := extractJSONObject(raw)
	if candidate == "" {
		return fmt.Errorf("%w: no object found in output", ErrMalformedModelJSON)
	}
	if err := json.Unmarshal([]byte(candidate), out); err == nil {
		return nil
	}
	repaired := repairTruncatedJSON(candidate)
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedModelJSON, err)
	}
	return nil
}

// extractJSONObject strips code fences and surrounding prose, returning
// the text from the first '{' through the matching close (or the end of
// input when the object is truncated).
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)

	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		// fence may carry a language tag like ```json
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		s = strings.TrimSpace(rest)
	}

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	s = s[start:]

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[:i+1]
				}
			}
		}
	}
	// truncated object; return what we have for repair
	return s
}

// repairTruncatedJSON closes unterminated strings, drops a trailing
// partial value, and balances brackets so the prefix parses.
func repairTruncatedJSON(s string) string {
	var stack []byte
	inString := false
	escaped := false
	lastComplete := -1

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				stack = append(stack, c)
			}
		case '}', ']':
			if !inString && len(stack) > 0 {
				stack = stack[:len(stack)-1]
				lastComplete = i
			}
		case ',':
			if !inString {
				lastComplete = i - 1
			}
		}
	}

	if inString {
		s += `"`
	}

	// drop a dangling "key": or trailing comma before closing
	trimmed := strings.TrimRight(s, " \t\r\n")
	if strings.HasSuffix(trimmed, ",") || strings.HasSuffix(trimmed, ":") {
		if lastComplete >= 0 && lastComplete < len(s) {
			trimmed = s[:lastComplete+1]
		} else {
			trimmed = strings.TrimRight(trimmed, ",: \t\r\n")
		}
	}
	s = trimmed

	// recompute open brackets on the (possibly shortened) prefix
	stack = stack[:0]
	inString = false
	escaped = false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				stack = append(stack, c)
			}
		case '}', ']':
			if !inString && len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			s += "}"
		} else {
			s += "]"
		}
	}
	return s
}
