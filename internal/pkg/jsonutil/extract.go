// Package jsonutil digs JSON out of free-form model replies.
package jsonutil

import "strings"

const codeFence = "```"

// Unfence returns the body of a leading markdown code fence, dropping the
// language tag. Text without a leading fence is returned trimmed.
func Unfence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, codeFence) {
		return s
	}
	s = strings.TrimPrefix(s, codeFence)
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, "[{") {
			s = s[nl+1:]
		}
	}
	if end := strings.Index(s, codeFence); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// Object returns the first balanced {...} in raw. Braces inside string
// literals are ignored.
func Object(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escape := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}
