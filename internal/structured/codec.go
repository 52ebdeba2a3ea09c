// Package structured decodes the JSON documents that model responses carry,
// tolerating the code fences and surrounding prose models tend to emit.
package structured

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError reports model output that did not contain the expected JSON
// document. Callers treat it as a fallback signal, never as fatal.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse model output: %s", e.Reason)
}

// ExtractJSON returns the first JSON object or array embedded in text.
func ExtractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", &ParseError{Reason: "empty response", Raw: text}
	}

	if i := strings.Index(trimmed, "```"); i >= 0 {
		rest := trimmed[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		rest = strings.TrimPrefix(rest, "JSON")
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		trimmed = strings.TrimSpace(rest)
	}

	start := strings.IndexAny(trimmed, "{[")
	if start < 0 {
		return "", &ParseError{Reason: "no JSON document found", Raw: text}
	}

	doc := trimmed[start:]
	end := documentEnd(doc)
	if end < 0 {
		return "", &ParseError{Reason: "unterminated JSON document", Raw: text}
	}
	return doc[:end+1], nil
}

// DecodeInto extracts the JSON document in text and unmarshals it into dest.
// Extra fields models add around the expected schema are ignored.
func DecodeInto(text string, dest interface{}) error {
	doc, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(doc), dest); err != nil {
		return &ParseError{Reason: err.Error(), Raw: text}
	}
	return nil
}

// documentEnd finds the index of the delimiter closing the document that
// opens at s[0], skipping delimiters inside string literals.
func documentEnd(s string) int {
	open := s[0]
	var closing byte = '}'
	if open == '[' {
		closing = ']'
	}

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
		case open:
			if !inString {
				depth++
			}
		case closing:
			if !inString {
				depth--
				if depth == 0 {
					return i
				}
			}
		}
	}
	return -1
}
